// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window opens SDL windows that Vulkan can present to.
package window

import (
	"github.com/devblok/toy2d/gfx/vkr"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"
)

// Options control how the window is created.
type Options struct {
	Title     string
	Width     int32
	Height    int32
	Hidden    bool
	Resizable bool
}

// Window is an SDL window with the Vulkan library loaded.
type Window struct {
	window *sdl.Window
}

// Open initialises SDL video and events, loads the Vulkan library and
// creates the window. Close undoes all of it.
func Open(opts Options) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}

	flags := uint32(sdl.WINDOW_VULKAN)
	if opts.Hidden {
		flags |= sdl.WINDOW_HIDDEN
	}
	if opts.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(opts.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		opts.Width,
		opts.Height,
		flags)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &Window{window: window}, nil
}

// Handle returns the SDL window.
func (w *Window) Handle() *sdl.Window {
	return w.window
}

// InstanceConfiguration returns an instance configuration carrying the
// extensions and loader entry point SDL needs.
func (w *Window) InstanceConfiguration(name string, debug bool) vkr.InstanceConfiguration {
	return vkr.InstanceConfiguration{
		ApplicationName: name,
		DebugMode:       debug,
		Extensions:      w.window.VulkanGetInstanceExtensions(),
		ProcAddr:        sdl.VulkanGetVkGetInstanceProcAddr(),
	}
}

// SurfaceFactory creates the presentation surface for the window.
func (w *Window) SurfaceFactory() vkr.SurfaceFactory {
	return func(instance vk.Instance) (vk.Surface, error) {
		surface, err := w.window.VulkanCreateSurface(instance)
		if err != nil {
			return vk.NullSurface, errors.Wrap(err, "sdl.Window.VulkanCreateSurface()")
		}
		return vk.SurfaceFromPointer(uintptr(surface)), nil
	}
}

// DrawableSize returns the size of the area Vulkan renders into.
func (w *Window) DrawableSize() (uint32, uint32) {
	width, height := w.window.VulkanGetDrawableSize()
	return uint32(width), uint32(height)
}

// Close destroys the window and shuts SDL down.
func (w *Window) Close() {
	w.window.Destroy()
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}
