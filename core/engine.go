// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core ties the renderer components together into an Engine.
package core

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/toy2d/gfx"
	"github.com/devblok/toy2d/gfx/vkr"
)

// Init brings up every renderer component in dependency order. On failure
// whatever was created is released again.
func Init(cfg Configuration, surface vkr.SurfaceFactory) (e *Engine, err error) {
	vertex, fragment := cfg.Renderer.VertexShader, cfg.Renderer.FragmentShader
	if vertex == nil || fragment == nil {
		if vertex, fragment, err = loadShaders(cfg.Renderer.ShaderDirectory, cfg.Renderer.ShaderName); err != nil {
			return nil, err
		}
	}

	e = &Engine{}
	defer func() {
		if err != nil {
			e.release()
			e = nil
		}
	}()

	if e.ctx, err = vkr.NewContext(cfg.Instance, surface); err != nil {
		return
	}
	e.own(e.ctx)

	width, height := cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight
	if e.swapchain, err = vkr.NewSwapchain(e.ctx, width, height, cfg.Renderer.SwapchainSize); err != nil {
		return
	}
	e.own(e.swapchain)

	if e.descriptors, err = vkr.NewDescriptorSetManager(e.ctx, cfg.Renderer.MaxFlightCount); err != nil {
		return
	}
	e.own(e.descriptors)

	if e.shader, err = vkr.NewShader(e.ctx, vertex, fragment); err != nil {
		return
	}
	e.own(e.shader)

	if e.process, err = vkr.NewRenderProcess(e.ctx, e.swapchain, e.shader, e.descriptors, cfg.Renderer.CullMode); err != nil {
		return
	}
	e.own(e.process)

	if err = e.swapchain.InitFramebuffers(e.process.RenderPass()); err != nil {
		return
	}

	if e.commands, err = vkr.NewCommandManager(e.ctx); err != nil {
		return
	}
	e.own(e.commands)

	loader, err := e.newLoader(cfg.Assets)
	if err != nil {
		return
	}

	if e.textures, err = vkr.NewTextureManager(e.ctx, e.commands, e.descriptors, loader); err != nil {
		return
	}
	e.own(e.textures)

	e.renderer, err = vkr.NewRenderer(e.ctx, e.swapchain, e.process, e.commands, e.descriptors, width, height, vkr.RendererConfiguration{
		MaxFlightCount: cfg.Renderer.MaxFlightCount,
		FenceTimeout:   cfg.Renderer.FenceTimeout,
		ClearColor:     cfg.Renderer.ClearColor,
	})
	if err != nil {
		return
	}
	e.own(e.renderer)

	info := e.swapchain.Info()
	log.WithFields(log.Fields{
		"width":   info.Extent.Width,
		"height":  info.Extent.Height,
		"images":  info.ImageCount,
		"format":  info.Format.Format,
		"present": info.PresentMode,
	}).Info("engine initialised")
	return e, nil
}

// Engine owns every renderer component and releases them in reverse
// order of creation: renderer, textures, command pool, render process,
// shader, descriptors, swapchain and the device last.
type Engine struct {
	ctx         *vkr.Context
	swapchain   *vkr.Swapchain
	commands    *vkr.CommandManager
	descriptors *vkr.DescriptorSetManager
	shader      *vkr.Shader
	process     *vkr.RenderProcess
	textures    *vkr.TextureManager
	renderer    *vkr.Renderer

	owned []gfx.Releasable
}

func (e *Engine) own(r gfx.Releasable) {
	e.owned = append(e.owned, r)
}

func (e *Engine) newLoader(cfg AssetConfiguration) (gfx.Loader, error) {
	max := int(e.ctx.MaxImageDimension2D())
	if cfg.Archive != "" {
		loader, err := NewArchiveLoader(cfg.Archive, max)
		if err != nil {
			return nil, errors.Wrap(err, "core.Init()")
		}
		e.own(loader)
		return loader, nil
	}
	return FileLoader{Root: cfg.Directory, MaxDimension: max}, nil
}

func (e *Engine) release() {
	for i := len(e.owned) - 1; i >= 0; i-- {
		e.owned[i].Release()
	}
	e.owned = nil
	*e = Engine{}
}

func (e *Engine) mustBeAlive() {
	if e.ctx == nil {
		panic("core: engine used after Quit")
	}
}

// Quit waits for the device to go idle and releases everything.
// The Engine can not be used afterwards.
func (e *Engine) Quit() {
	if e.ctx == nil {
		return
	}
	if err := e.ctx.WaitIdle(); err != nil {
		log.WithError(err).Error("waiting for device before teardown")
	}
	e.release()
	log.Info("engine shut down")
}

// Renderer returns the frame renderer.
func (e *Engine) Renderer() *vkr.Renderer {
	e.mustBeAlive()
	return e.renderer
}

// Context returns the device context.
func (e *Engine) Context() *vkr.Context {
	e.mustBeAlive()
	return e.ctx
}

// LoadTexture resolves id through the configured loader and uploads it.
// Each call creates an independent texture.
func (e *Engine) LoadTexture(id string) (*vkr.Texture, error) {
	e.mustBeAlive()
	return e.textures.Load(id)
}

// CreateTexture uploads already decoded pixels.
func (e *Engine) CreateTexture(pixels gfx.Pixels) (*vkr.Texture, error) {
	e.mustBeAlive()
	return e.textures.Create(pixels)
}

// DestroyTexture releases t once the device is idle.
func (e *Engine) DestroyTexture(t *vkr.Texture) error {
	e.mustBeAlive()
	return e.textures.Destroy(t)
}

// Resize rebuilds the swapchain for a new window size.
func (e *Engine) Resize(width, height uint32) error {
	e.mustBeAlive()
	return e.renderer.Rebuild(width, height)
}
