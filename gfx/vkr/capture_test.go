// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"image/color"
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

func TestToRGBA(t *testing.T) {
	c := qt.New(t)
	data := []byte{
		10, 20, 30, 255, 40, 50, 60, 128,
	}

	img := toRGBA(data, 2, 1, vk.FormatR8g8b8a8Srgb)
	c.Assert(img.RGBAAt(0, 0), qt.Equals, color.RGBA{10, 20, 30, 255})
	c.Assert(img.RGBAAt(1, 0), qt.Equals, color.RGBA{40, 50, 60, 128})

	img = toRGBA(data, 2, 1, vk.FormatB8g8r8a8Srgb)
	c.Assert(img.RGBAAt(0, 0), qt.Equals, color.RGBA{30, 20, 10, 255})
	c.Assert(img.RGBAAt(1, 0), qt.Equals, color.RGBA{60, 50, 40, 128})
}

func TestToRGBAShortData(t *testing.T) {
	c := qt.New(t)
	img := toRGBA([]byte{1, 2, 3, 4}, 2, 2, vk.FormatB8g8r8a8Unorm)
	c.Assert(img.Bounds().Dx(), qt.Equals, 2)
	c.Assert(img.RGBAAt(0, 0), qt.Equals, color.RGBA{3, 2, 1, 4})
	c.Assert(img.RGBAAt(1, 1), qt.Equals, color.RGBA{})
}

func TestCaptureWithoutFrame(t *testing.T) {
	c := qt.New(t)
	r := &Renderer{captureFrame: -1}
	_, err := r.Capture()
	c.Assert(err, qt.Equals, ErrNoCapture)
}

func TestRecordCaptureNeedsSizedBuffer(t *testing.T) {
	c := qt.New(t)
	r := &Renderer{
		swapchain:    &Swapchain{info: SwapchainInfo{Extent: vk.Extent2D{Width: 4, Height: 2}}},
		captureFrame: -1,
	}
	f := &frame{}

	captured, err := r.recordCapture(f)
	c.Assert(err, qt.IsNil)
	c.Assert(captured, qt.IsFalse)

	// a buffer left over from an earlier swapchain size is not written to
	r.capture = &Buffer{size: 16}
	captured, err = r.recordCapture(f)
	c.Assert(err, qt.IsNil)
	c.Assert(captured, qt.IsFalse)
}

func TestCaptureSize(t *testing.T) {
	c := qt.New(t)
	c.Assert(captureSize(vk.Extent2D{Width: 1024, Height: 720}), qt.Equals, uint(1024*720*4))
	c.Assert(captureSize(vk.Extent2D{}), qt.Equals, uint(0))
}
