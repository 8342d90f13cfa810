// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/toy2d/gfx/vkr"
	"github.com/devblok/toy2d/gfx/window"
)

type recordRelease struct {
	name  string
	order *[]string
}

func (r recordRelease) Release() {
	*r.order = append(*r.order, r.name)
}

func TestReleaseReverseOrder(t *testing.T) {
	c := qt.New(t)
	var order []string
	e := &Engine{}
	for _, name := range []string{"context", "swapchain", "process", "commands", "renderer"} {
		e.own(recordRelease{name: name, order: &order})
	}

	e.release()
	c.Assert(order, qt.DeepEquals, []string{"renderer", "commands", "process", "swapchain", "context"})
	c.Assert(e.owned, qt.HasLen, 0)
}

func indexOwned(e *Engine, match func(interface{}) bool) int {
	for i, r := range e.owned {
		if match(r) {
			return i
		}
	}
	return -1
}

func TestCommandPoolReleasedBeforeRenderProcess(t *testing.T) {
	c := qt.New(t)
	if os.Getenv("TOY2D_GPU_TESTS") != "1" {
		c.Skip("set TOY2D_GPU_TESTS=1 to run tests on the GPU")
	}
	if _, err := os.Stat(filepath.Join("..", "shaders", "shader.vert.spv")); err != nil {
		c.Skip("compiled shaders missing, run go generate ./cmd/toy2d")
	}

	w, err := window.Open(window.Options{Title: "core test", Width: 320, Height: 240, Hidden: true})
	c.Assert(err, qt.IsNil)
	c.Cleanup(w.Close)

	cfg := DefaultConfiguration()
	cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight = 320, 240
	cfg.Renderer.ShaderDirectory = filepath.Join("..", "shaders")
	cfg.Instance = w.InstanceConfiguration("core test", false)

	e, err := Init(cfg, w.SurfaceFactory())
	c.Assert(err, qt.IsNil)
	c.Cleanup(e.Quit)

	commands := indexOwned(e, func(r interface{}) bool { _, ok := r.(*vkr.CommandManager); return ok })
	process := indexOwned(e, func(r interface{}) bool { _, ok := r.(*vkr.RenderProcess); return ok })
	swapchain := indexOwned(e, func(r interface{}) bool { _, ok := r.(*vkr.Swapchain); return ok })
	c.Assert(commands > process, qt.IsTrue)
	c.Assert(process > swapchain, qt.IsTrue)
}
