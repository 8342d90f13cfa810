// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// SwapchainInfo is what was negotiated with the surface.
type SwapchainInfo struct {
	Extent         vk.Extent2D
	ImageCount     uint32
	Format         vk.SurfaceFormat
	PresentMode    vk.PresentMode
	Transform      vk.SurfaceTransformFlagBits
	CompositeAlpha vk.CompositeAlphaFlagBits
	Usage          vk.ImageUsageFlags
}

// chooseSurfaceFormat prefers 8 bit sRGB with the sRGB nonlinear color space,
// falling back to the first format reported.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		format.Deref()
		if (format.Format == vk.FormatR8g8b8a8Srgb || format.Format == vk.FormatB8g8r8a8Srgb) &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	first := formats[0]
	first.Deref()
	return first
}

// choosePresentMode prefers mailbox and falls back to FIFO, which every
// implementation supports.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseImageCount clamps requested into the surface limits. A max of zero
// means there is no upper limit.
func chooseImageCount(requested uint32, caps vk.SurfaceCapabilities) uint32 {
	max := caps.MaxImageCount
	if max == 0 {
		max = ^uint32(0)
	}
	return clampUint32(requested, caps.MinImageCount, max)
}

// chooseExtent clamps the requested size into the surface limits.
func chooseExtent(width, height uint32, caps vk.SurfaceCapabilities) vk.Extent2D {
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return vk.Extent2D{
		Width:  clampUint32(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func chooseTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

// chooseUsage always renders into the images, and adds transfer source
// when the surface allows it so frames can be captured.
func chooseUsage(supported vk.ImageUsageFlags) vk.ImageUsageFlags {
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if supported&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	return usage
}

// NewSwapchain creates the swapchain and its image views. Framebuffers
// follow once the render pass exists, through InitFramebuffers.
func NewSwapchain(ctx *Context, width, height, imageCount uint32) (*Swapchain, error) {
	s := &Swapchain{
		ctx:       ctx,
		requested: imageCount,
	}
	s.build = s.create
	if err := s.create(width, height, vk.NullSwapchain); err != nil {
		return nil, err
	}
	return s, nil
}

// Swapchain owns the presentable images, their views and framebuffers.
type Swapchain struct {
	ctx       *Context
	requested uint32

	swapchain    vk.Swapchain
	info         SwapchainInfo
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer

	build func(width, height uint32, old vk.Swapchain) error
}

func (s *Swapchain) querySurface() (vk.SurfaceCapabilities, []vk.SurfaceFormat, []vk.PresentMode, error) {
	pd, surface := s.ctx.PhysicalDevice(), s.ctx.Surface()

	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps), "vk.GetPhysicalDeviceSurfaceCapabilities", InitializationFailed); err != nil {
		return caps, nil, nil, err
	}
	caps.Deref()

	var formatCount uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil), "vk.GetPhysicalDeviceSurfaceFormats", InitializationFailed); err != nil {
		return caps, nil, nil, err
	}
	if formatCount == 0 {
		return caps, nil, nil, initError("vk.GetPhysicalDeviceSurfaceFormats", fmt.Errorf("surface reports no formats"))
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, formats), "vk.GetPhysicalDeviceSurfaceFormats", InitializationFailed); err != nil {
		return caps, nil, nil, err
	}

	var modeCount uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil), "vk.GetPhysicalDeviceSurfacePresentModes", InitializationFailed); err != nil {
		return caps, nil, nil, err
	}
	modes := make([]vk.PresentMode, modeCount)
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, modes), "vk.GetPhysicalDeviceSurfacePresentModes", InitializationFailed); err != nil {
		return caps, nil, nil, err
	}

	return caps, formats, modes, nil
}

func (s *Swapchain) create(width, height uint32, old vk.Swapchain) error {
	caps, formats, modes, err := s.querySurface()
	if err != nil {
		return err
	}

	info := SwapchainInfo{
		Extent:         chooseExtent(width, height, caps),
		ImageCount:     chooseImageCount(s.requested, caps),
		Format:         chooseSurfaceFormat(formats),
		PresentMode:    choosePresentMode(modes),
		Transform:      chooseTransform(caps),
		CompositeAlpha: chooseCompositeAlpha(caps.SupportedCompositeAlpha),
		Usage:          chooseUsage(caps.SupportedUsageFlags),
	}
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return &Error{Kind: SwapchainOutOfDate, Op: "vkr.Swapchain.create", Result: vk.ErrorOutOfDate, Err: fmt.Errorf("surface has zero extent")}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.ctx.Surface(),
		MinImageCount:    info.ImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       info.Usage,
		PreTransform:     info.Transform,
		CompositeAlpha:   info.CompositeAlpha,
		PresentMode:      info.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	families := s.ctx.QueueFamilies()
	if families.Shared() {
		scci.ImageSharingMode = vk.SharingModeExclusive
	} else {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = families.Unique()
	}

	var swapchain vk.Swapchain
	if err := check(vk.CreateSwapchain(s.ctx.Device(), &scci, nil, &swapchain), "vk.CreateSwapchain", InitializationFailed); err != nil {
		return err
	}

	var numImages uint32
	if err := check(vk.GetSwapchainImages(s.ctx.Device(), swapchain, &numImages, nil), "vk.GetSwapchainImages", InitializationFailed); err != nil {
		vk.DestroySwapchain(s.ctx.Device(), swapchain, nil)
		return err
	}
	images := make([]vk.Image, numImages)
	if err := check(vk.GetSwapchainImages(s.ctx.Device(), swapchain, &numImages, images), "vk.GetSwapchainImages", InitializationFailed); err != nil {
		vk.DestroySwapchain(s.ctx.Device(), swapchain, nil)
		return err
	}

	views, err := createImageViews(s.ctx.Device(), images, info.Format.Format)
	if err != nil {
		vk.DestroySwapchain(s.ctx.Device(), swapchain, nil)
		return err
	}

	s.swapchain = swapchain
	s.info = info
	s.info.ImageCount = numImages
	s.images = images
	s.views = views

	log.WithFields(log.Fields{
		"extent":      fmt.Sprintf("%dx%d", info.Extent.Width, info.Extent.Height),
		"images":      numImages,
		"format":      info.Format.Format,
		"presentMode": info.PresentMode,
	}).Info("swapchain created")
	return nil
}

func createImageViews(device vk.Device, images []vk.Image, format vk.Format) ([]vk.ImageView, error) {
	views := make([]vk.ImageView, 0, len(images))
	for idx, image := range images {
		view, err := createImageView(device, image, format)
		if err != nil {
			for _, v := range views {
				vk.DestroyImageView(device, v, nil)
			}
			return nil, fmt.Errorf("image %d: %s", idx, err.Error())
		}
		views = append(views, view)
	}
	return views, nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorSubresourceRange(),
	}

	var view vk.ImageView
	if err := check(vk.CreateImageView(device, &ivci, nil, &view), "vk.CreateImageView", AllocationFailed); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// InitFramebuffers creates one framebuffer per image for renderPass.
func (s *Swapchain) InitFramebuffers(renderPass vk.RenderPass) error {
	s.destroyFramebuffers()
	for _, view := range s.views {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           s.info.Extent.Width,
			Height:          s.info.Extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := check(vk.CreateFramebuffer(s.ctx.Device(), &fci, nil, &framebuffer), "vk.CreateFramebuffer", InitializationFailed); err != nil {
			s.destroyFramebuffers()
			return err
		}
		s.framebuffers = append(s.framebuffers, framebuffer)
	}
	return nil
}

// Recreate builds a new swapchain for the given size, handing the old one
// to the driver, and releases the old views and framebuffers. Framebuffers
// must be initialised again afterwards. When the new swapchain can not be
// built the old one is left untouched, framebuffers included.
func (s *Swapchain) Recreate(width, height uint32) error {
	old := s.swapchain
	oldViews := s.views

	if err := s.build(width, height, old); err != nil {
		return err
	}

	s.destroyFramebuffers()
	for _, view := range oldViews {
		vk.DestroyImageView(s.ctx.Device(), view, nil)
	}
	vk.DestroySwapchain(s.ctx.Device(), old, nil)
	return nil
}

// Handle returns the vulkan swapchain.
func (s *Swapchain) Handle() vk.Swapchain {
	return s.swapchain
}

// Info returns the negotiated swapchain parameters.
func (s *Swapchain) Info() SwapchainInfo {
	return s.info
}

// Image returns the swapchain image at idx.
func (s *Swapchain) Image(idx uint32) vk.Image {
	return s.images[idx]
}

// Framebuffer returns the framebuffer for the image at idx.
func (s *Swapchain) Framebuffer(idx uint32) vk.Framebuffer {
	return s.framebuffers[idx]
}

// Ready reports whether every image has a framebuffer to render into.
func (s *Swapchain) Ready() bool {
	return len(s.framebuffers) > 0 && len(s.framebuffers) == len(s.images)
}

// CanCapture reports whether the images can be copied from.
func (s *Swapchain) CanCapture() bool {
	return s.info.Usage&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) != 0
}

func (s *Swapchain) destroyFramebuffers() {
	for _, f := range s.framebuffers {
		vk.DestroyFramebuffer(s.ctx.Device(), f, nil)
	}
	s.framebuffers = nil
}

// Release destroys the framebuffers, the image views and the swapchain.
func (s *Swapchain) Release() {
	s.destroyFramebuffers()
	for _, view := range s.views {
		vk.DestroyImageView(s.ctx.Device(), view, nil)
	}
	s.views = nil
	vk.DestroySwapchain(s.ctx.Device(), s.swapchain, nil)
	s.swapchain = vk.NullSwapchain
}
