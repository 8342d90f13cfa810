// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"sync"

	"github.com/devblok/toy2d/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// TextureFormat is the format every texture is uploaded in.
const TextureFormat = vk.FormatR8g8b8a8Srgb

// Texture is a sampled image with its own descriptor set.
type Texture struct {
	id     string
	width  uint32
	height uint32

	device vk.Device
	image  vk.Image
	memory Memory
	view   vk.ImageView
	set    ImageSet
}

// ID returns the id the texture was loaded from, empty for textures
// created from raw pixels.
func (t *Texture) ID() string {
	return t.id
}

// Size returns the texture dimensions.
func (t *Texture) Size() gfx.Extent2D {
	return gfx.Extent2D{Width: t.width, Height: t.height}
}

// Set returns the descriptor set sampling this texture.
func (t *Texture) Set() vk.DescriptorSet {
	return t.set.Set
}

// NewTextureManager creates the shared sampler textures are read through.
func NewTextureManager(ctx *Context, commands *CommandManager, descriptors *DescriptorSetManager, loader gfx.Loader) (*TextureManager, error) {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}

	var sampler vk.Sampler
	if err := check(vk.CreateSampler(ctx.Device(), &sci, nil, &sampler), "vk.CreateSampler", InitializationFailed); err != nil {
		return nil, err
	}

	return &TextureManager{
		ctx:         ctx,
		commands:    commands,
		descriptors: descriptors,
		loader:      loader,
		sampler:     sampler,
		textures:    make(map[*Texture]struct{}),
	}, nil
}

// TextureManager creates and destroys textures and keeps track of the
// live ones so they can all be cleared at shutdown.
type TextureManager struct {
	ctx         *Context
	commands    *CommandManager
	descriptors *DescriptorSetManager
	loader      gfx.Loader
	sampler     vk.Sampler

	mutex    sync.Mutex
	textures map[*Texture]struct{}
}

// Load resolves id through the loader and uploads the result.
func (tm *TextureManager) Load(id string) (*Texture, error) {
	if tm.loader == nil {
		return nil, errors.Errorf("vkr.TextureManager.Load(%q): no loader configured", id)
	}
	pixels, err := tm.loader.Load(id)
	if err != nil {
		return nil, errors.Wrapf(err, "vkr.TextureManager.Load(%q)", id)
	}

	log.WithFields(log.Fields{
		"id":     id,
		"width":  pixels.Width,
		"height": pixels.Height,
	}).Info("texture loaded")

	texture, err := tm.Create(pixels)
	if err != nil {
		return nil, errors.Wrapf(err, "vkr.TextureManager.Load(%q)", id)
	}
	texture.id = id
	return texture, nil
}

// Create uploads pixels into a new texture: stage, transition to transfer
// destination, copy, transition to shader read, view, descriptor set.
// Either a complete texture is returned or nothing is left allocated.
func (tm *TextureManager) Create(pixels gfx.Pixels) (t *Texture, err error) {
	if err := pixels.Validate(); err != nil {
		return nil, errors.Wrap(err, "vkr.TextureManager.Create()")
	}

	staging, err := NewBuffer(tm.ctx, uint(len(pixels.Data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), HostVisible)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	if err := staging.Write(pixels.Data); err != nil {
		return nil, err
	}

	extent := pixels.Extent()
	t = &Texture{
		width:  extent.Width,
		height: extent.Height,
		device: tm.ctx.Device(),
	}
	defer func() {
		if err != nil {
			tm.release(t)
			t = nil
		}
	}()

	if err = tm.createImage(t); err != nil {
		return
	}

	err = tm.commands.ExecuteCmd(tm.ctx.GraphicsQueue(), func(cmd vk.CommandBuffer) {
		// the layout pairs below are in layoutTransitions, errors cannot happen
		_ = recordTransition(cmd, t.image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		recordCopyBufferToImage(cmd, staging, t.image, t.width, t.height)
		_ = recordTransition(cmd, t.image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		return
	}

	if t.view, err = createImageView(t.device, t.image, TextureFormat); err != nil {
		return
	}

	if t.set, err = tm.descriptors.AllocImageSet(); err != nil {
		return
	}
	tm.descriptors.WriteImageSet(t.set, t.view, tm.sampler)

	tm.mutex.Lock()
	tm.textures[t] = struct{}{}
	tm.mutex.Unlock()
	return t, nil
}

func (tm *TextureManager) createImage(t *Texture) error {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    TextureFormat,
		Extent: vk.Extent3D{
			Width:  t.width,
			Height: t.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	if err := check(vk.CreateImage(t.device, &ici, nil, &t.image), "vk.CreateImage", AllocationFailed); err != nil {
		return err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(t.device, t.image, &req)
	req.Deref()

	memory, err := tm.ctx.Allocator().Malloc(req, DeviceLocal)
	if err != nil {
		return err
	}
	t.memory = memory

	return check(vk.BindImageMemory(t.device, t.image, memory.Get(), vk.DeviceSize(memory.Offset())), "vk.BindImageMemory", AllocationFailed)
}

// release frees whatever part of t was created.
func (tm *TextureManager) release(t *Texture) {
	if t.set.Set != vk.NullDescriptorSet {
		tm.descriptors.FreeImageSet(t.set)
		t.set = ImageSet{}
	}
	if t.view != vk.NullImageView {
		vk.DestroyImageView(t.device, t.view, nil)
		t.view = vk.NullImageView
	}
	if t.image != vk.NullImage {
		vk.DestroyImage(t.device, t.image, nil)
		t.image = vk.NullImage
	}
	if t.memory.Get() != vk.NullDeviceMemory {
		t.memory.Release()
	}
}

// Destroy waits for the device to go idle and releases the texture.
// Other textures are not affected.
func (tm *TextureManager) Destroy(t *Texture) error {
	tm.mutex.Lock()
	_, ok := tm.textures[t]
	delete(tm.textures, t)
	tm.mutex.Unlock()
	if !ok {
		return nil
	}

	if err := tm.ctx.WaitIdle(); err != nil {
		return err
	}
	tm.release(t)
	return nil
}

// Live returns the number of textures not yet destroyed.
func (tm *TextureManager) Live() int {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	return len(tm.textures)
}

// Clear destroys every live texture. The device must be idle.
func (tm *TextureManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	for t := range tm.textures {
		tm.release(t)
		delete(tm.textures, t)
	}
}

// Release clears the textures and destroys the sampler.
func (tm *TextureManager) Release() {
	tm.Clear()
	vk.DestroySampler(tm.ctx.Device(), tm.sampler, nil)
}
