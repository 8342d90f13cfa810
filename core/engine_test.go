// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/toy2d/core"
	"github.com/devblok/toy2d/gfx"
	"github.com/devblok/toy2d/gfx/vkr"
	"github.com/devblok/toy2d/gfx/window"
	"github.com/devblok/toy2d/model"
)

func init() {
	runtime.LockOSThread()
}

func newTestEngine(c *qt.C, width, height uint32) *core.Engine {
	if os.Getenv("TOY2D_GPU_TESTS") != "1" {
		c.Skip("set TOY2D_GPU_TESTS=1 to run tests on the GPU")
	}
	if _, err := os.Stat(filepath.Join("..", "shaders", "shader.vert.spv")); err != nil {
		c.Skip("compiled shaders missing, run go generate ./cmd/toy2d")
	}

	w, err := window.Open(window.Options{Title: "core test", Width: int32(width), Height: int32(height), Hidden: true})
	c.Assert(err, qt.IsNil)
	c.Cleanup(w.Close)

	cfg := core.DefaultConfiguration()
	cfg.Renderer.ScreenWidth = width
	cfg.Renderer.ScreenHeight = height
	cfg.Renderer.ShaderDirectory = filepath.Join("..", "shaders")
	cfg.Instance = w.InstanceConfiguration("core test", false)

	engine, err := core.Init(cfg, w.SurfaceFactory())
	c.Assert(err, qt.IsNil)
	c.Cleanup(engine.Quit)
	return engine
}

func redPixels() gfx.Pixels {
	return gfx.Pixels{
		Data:   []byte{255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255},
		Width:  2,
		Height: 2,
	}
}

func TestRenderRedQuad(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 1024, 720)
	renderer := engine.Renderer()
	c.Assert(renderer.MaxFlightCount(), qt.Equals, uint32(2))

	texture, err := engine.CreateTexture(redPixels())
	c.Assert(err, qt.IsNil)

	c.Assert(renderer.SetProject(1024, 0, 0, 720, 1, -1), qt.IsNil)

	for frame := 0; frame < 2; frame++ {
		if frame == 1 {
			c.Assert(renderer.CaptureNextFrame(), qt.IsNil)
		}
		c.Assert(renderer.StartRender(), qt.IsNil)
		renderer.DrawTexture(100, 100, 0, texture)
		c.Assert(renderer.EndRender(), qt.IsNil)
	}

	img, err := renderer.Capture()
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 1024)

	// the quad is 400 wide and centered on (100, 100)
	c.Assert(img.RGBAAt(100, 100), qt.Equals, color.RGBA{255, 0, 0, 255})
	c.Assert(img.RGBAAt(290, 290), qt.Equals, color.RGBA{255, 0, 0, 255})
	background := img.RGBAAt(800, 600)
	c.Assert(background.R < 128, qt.IsTrue)
	c.Assert(background.R, qt.Equals, background.G)
}

func TestDrawColorTints(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 640, 480)
	renderer := engine.Renderer()

	white, err := engine.CreateTexture(gfx.Pixels{Data: []byte{255, 255, 255, 255}, Width: 1, Height: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(renderer.SetProject(640, 0, 0, 480, 1, -1), qt.IsNil)

	// only the last color set before the frame counts
	c.Assert(renderer.SetDrawColor(model.Color{R: 1, G: 0, B: 0}), qt.IsNil)
	c.Assert(renderer.SetDrawColor(model.Color{R: 0, G: 0, B: 1}), qt.IsNil)
	c.Assert(renderer.DrawColor(), qt.Equals, model.Color{R: 0, G: 0, B: 1})

	c.Assert(renderer.CaptureNextFrame(), qt.IsNil)
	c.Assert(renderer.StartRender(), qt.IsNil)
	renderer.DrawTexture(320, 240, 45, white)
	c.Assert(renderer.EndRender(), qt.IsNil)

	img, err := renderer.Capture()
	c.Assert(err, qt.IsNil)
	c.Assert(img.RGBAAt(320, 240), qt.Equals, color.RGBA{0, 0, 255, 255})
}

func TestDrawOutsideFrameIsIgnored(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 320, 240)
	renderer := engine.Renderer()

	texture, err := engine.CreateTexture(redPixels())
	c.Assert(err, qt.IsNil)

	renderer.DrawTexture(0, 0, 0, texture)
	c.Assert(renderer.Recording(), qt.IsFalse)
	c.Assert(renderer.EndRender(), qt.IsNil)

	c.Assert(renderer.StartRender(), qt.IsNil)
	c.Assert(renderer.StartRender(), qt.ErrorMatches, ".*frame already started")
	c.Assert(renderer.EndRender(), qt.IsNil)
}

func TestResizeKeepsResources(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 320, 240)
	renderer := engine.Renderer()

	texture, err := engine.CreateTexture(redPixels())
	c.Assert(err, qt.IsNil)

	c.Assert(engine.Resize(300, 200), qt.IsNil)
	for frame := 0; frame < 3; frame++ {
		err := renderer.StartRender()
		if vkr.IsKind(err, vkr.SwapchainOutOfDate) {
			continue
		}
		c.Assert(err, qt.IsNil)
		renderer.DrawTexture(0, 0, 0, texture)
		c.Assert(renderer.EndRender(), qt.IsNil)
	}
	c.Assert(engine.DestroyTexture(texture), qt.IsNil)
}

func TestDrawColorInsideFrame(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 640, 480)
	renderer := engine.Renderer()

	white, err := engine.CreateTexture(gfx.Pixels{Data: []byte{255, 255, 255, 255}, Width: 1, Height: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(renderer.SetProject(640, 0, 0, 480, 1, -1), qt.IsNil)
	c.Assert(renderer.SetDrawColor(model.Color{R: 1, G: 0, B: 0}), qt.IsNil)

	c.Assert(renderer.CaptureNextFrame(), qt.IsNil)
	c.Assert(renderer.StartRender(), qt.IsNil)
	// set while recording, must show up in this very frame
	c.Assert(renderer.SetDrawColor(model.Color{R: 0, G: 0, B: 1}), qt.IsNil)
	renderer.DrawTexture(320, 240, 0, white)
	c.Assert(renderer.EndRender(), qt.IsNil)

	img, err := renderer.Capture()
	c.Assert(err, qt.IsNil)
	c.Assert(img.RGBAAt(320, 240), qt.Equals, color.RGBA{0, 0, 255, 255})
}

func TestCaptureSurvivesRebuild(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 320, 240)
	renderer := engine.Renderer()

	texture, err := engine.CreateTexture(redPixels())
	c.Assert(err, qt.IsNil)
	c.Assert(renderer.SetProject(320, 0, 0, 240, 1, -1), qt.IsNil)

	c.Assert(renderer.CaptureNextFrame(), qt.IsNil)
	c.Assert(renderer.StartRender(), qt.IsNil)
	renderer.DrawTexture(160, 120, 0, texture)
	c.Assert(renderer.EndRender(), qt.IsNil)

	// a rebuild after the captured frame was submitted keeps the readback
	c.Assert(engine.Resize(300, 200), qt.IsNil)

	img, err := renderer.Capture()
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 320)
	c.Assert(img.RGBAAt(160, 120), qt.Equals, color.RGBA{255, 0, 0, 255})
}

func TestCaptureRequestedBeforeResize(t *testing.T) {
	c := qt.New(t)
	engine := newTestEngine(c, 320, 240)
	renderer := engine.Renderer()

	texture, err := engine.CreateTexture(redPixels())
	c.Assert(err, qt.IsNil)

	c.Assert(renderer.CaptureNextFrame(), qt.IsNil)
	c.Assert(engine.Resize(300, 200), qt.IsNil)
	c.Assert(renderer.SetProject(300, 0, 0, 200, 1, -1), qt.IsNil)

	captured := false
	for frame := 0; frame < 3 && !captured; frame++ {
		err := renderer.StartRender()
		if vkr.Recoverable(err) {
			continue
		}
		c.Assert(err, qt.IsNil)
		renderer.DrawTexture(150, 100, 0, texture)
		c.Assert(renderer.EndRender(), qt.IsNil)
		captured = true
	}
	c.Assert(captured, qt.IsTrue)

	img, err := renderer.Capture()
	c.Assert(err, qt.IsNil)
	c.Assert(img.RGBAAt(150, 100), qt.Equals, color.RGBA{255, 0, 0, 255})
}
