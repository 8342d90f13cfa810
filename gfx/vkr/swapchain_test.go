// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

func capabilities(minCount, maxCount uint32, min, max vk.Extent2D) vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		MinImageCount:  minCount,
		MaxImageCount:  maxCount,
		MinImageExtent: min,
		MaxImageExtent: max,
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		about     string
		requested uint32
		min, max  uint32
		want      uint32
	}{
		{"within limits", 3, 2, 8, 3},
		{"raised to minimum", 1, 2, 8, 2},
		{"lowered to maximum", 10, 2, 8, 8},
		{"unbounded maximum", 10, 2, 0, 10},
	}
	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			caps := capabilities(test.min, test.max, vk.Extent2D{}, vk.Extent2D{})
			c.Assert(chooseImageCount(test.requested, caps), qt.Equals, test.want)
		})
	}
}

func TestChooseExtent(t *testing.T) {
	c := qt.New(t)
	caps := capabilities(2, 3, vk.Extent2D{Width: 100, Height: 100}, vk.Extent2D{Width: 1024, Height: 720})

	c.Assert(chooseExtent(800, 600, caps), qt.Equals, vk.Extent2D{Width: 800, Height: 600})
	c.Assert(chooseExtent(4096, 50, caps), qt.Equals, vk.Extent2D{Width: 1024, Height: 100})

	fixed := capabilities(2, 3, vk.Extent2D{Width: 640, Height: 480}, vk.Extent2D{Width: 640, Height: 480})
	c.Assert(chooseExtent(1024, 720, fixed), qt.Equals, vk.Extent2D{Width: 640, Height: 480})
}

func TestChooseSurfaceFormat(t *testing.T) {
	c := qt.New(t)
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	c.Assert(chooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}).Format, qt.Equals, vk.FormatB8g8r8a8Srgb)
	c.Assert(chooseSurfaceFormat([]vk.SurfaceFormat{unorm}).Format, qt.Equals, vk.FormatB8g8r8a8Unorm)
}

func TestChoosePresentMode(t *testing.T) {
	c := qt.New(t)
	c.Assert(choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}), qt.Equals, vk.PresentModeMailbox)
	c.Assert(choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}), qt.Equals, vk.PresentModeFifo)
}

func TestChooseCompositeAlpha(t *testing.T) {
	c := qt.New(t)
	c.Assert(chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit|vk.CompositeAlphaOpaqueBit)), qt.Equals, vk.CompositeAlphaOpaqueBit)
	c.Assert(chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)), qt.Equals, vk.CompositeAlphaInheritBit)
}

func TestChooseUsage(t *testing.T) {
	c := qt.New(t)
	color := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	transfer := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)

	c.Assert(chooseUsage(color), qt.Equals, color)
	c.Assert(chooseUsage(color|transfer), qt.Equals, color|transfer)
}

func TestRecreateFailureKeepsFramebuffers(t *testing.T) {
	c := qt.New(t)
	s := &Swapchain{
		images:       make([]vk.Image, 2),
		views:        make([]vk.ImageView, 2),
		framebuffers: make([]vk.Framebuffer, 2),
	}
	s.build = func(width, height uint32, old vk.Swapchain) error {
		return &Error{Kind: SwapchainOutOfDate, Op: "vkr.Swapchain.create", Result: vk.ErrorOutOfDate}
	}
	c.Assert(s.Ready(), qt.IsTrue)

	err := s.Recreate(0, 0)
	c.Assert(IsKind(err, SwapchainOutOfDate), qt.IsTrue)
	c.Assert(s.framebuffers, qt.HasLen, 2)
	c.Assert(s.views, qt.HasLen, 2)
	c.Assert(s.Ready(), qt.IsTrue)
}

func TestReady(t *testing.T) {
	c := qt.New(t)
	s := &Swapchain{images: make([]vk.Image, 3)}
	c.Assert(s.Ready(), qt.IsFalse)

	s.framebuffers = make([]vk.Framebuffer, 2)
	c.Assert(s.Ready(), qt.IsFalse)

	s.framebuffers = make([]vk.Framebuffer, 3)
	c.Assert(s.Ready(), qt.IsTrue)
}
