// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/toy2d/model"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// ImagePoolSize is the number of texture sets each image pool holds.
const ImagePoolSize = 16

// setChain hands out sets from a growing chain of fixed size pools and
// recycles freed sets before touching fresh pool capacity.
type setChain[S any] struct {
	capacity int
	pools    int
	left     int
	live     int
	free     []S

	grow     func() error
	allocate func(pool int) (S, error)
}

func (c *setChain[S]) alloc() (S, error) {
	if n := len(c.free); n > 0 {
		set := c.free[n-1]
		c.free = c.free[:n-1]
		c.live++
		return set, nil
	}

	if c.left == 0 {
		if err := c.grow(); err != nil {
			var zero S
			return zero, err
		}
		c.pools++
		c.left = c.capacity
	}

	set, err := c.allocate(c.pools - 1)
	if err != nil {
		return set, err
	}
	c.left--
	c.live++
	return set, nil
}

func (c *setChain[S]) release(set S) {
	c.free = append(c.free, set)
	c.live--
}

// ImageSet is a texture descriptor set and the pool it came from.
type ImageSet struct {
	Set  vk.DescriptorSet
	pool int
}

// NewDescriptorSetManager creates the set layouts and the per-frame uniform
// pool, sized for maxFlight frames with two uniform buffers each.
func NewDescriptorSetManager(ctx *Context, maxFlight uint32) (dsm *DescriptorSetManager, err error) {
	dsm = &DescriptorSetManager{
		device:    ctx.Device(),
		maxFlight: maxFlight,
	}
	defer func() {
		if err != nil {
			dsm.Release()
			dsm = nil
		}
	}()

	if dsm.bufferLayout, err = createSetLayout(dsm.device, []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}, {
		Binding:         1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}); err != nil {
		return
	}

	if dsm.imageLayout, err = createSetLayout(dsm.device, []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}); err != nil {
		return
	}

	if dsm.bufferPool, err = createPool(dsm.device, vk.DescriptorTypeUniformBuffer, maxFlight, 2*maxFlight); err != nil {
		return
	}

	dsm.images = setChain[ImageSet]{
		capacity: ImagePoolSize,
		grow:     dsm.growImagePools,
		allocate: dsm.allocateImageSet,
	}
	return dsm, nil
}

// DescriptorSetManager owns the descriptor set layouts and pools.
type DescriptorSetManager struct {
	device    vk.Device
	maxFlight uint32

	bufferLayout vk.DescriptorSetLayout
	imageLayout  vk.DescriptorSetLayout

	bufferPool vk.DescriptorPool
	imagePools []vk.DescriptorPool
	images     setChain[ImageSet]
}

func createSetLayout(device vk.Device, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(device, &dslci, nil, &layout), "vk.CreateDescriptorSetLayout", InitializationFailed); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

func createPool(device vk.Device, kind vk.DescriptorType, maxSets, descriptors uint32) (vk.DescriptorPool, error) {
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            kind,
			DescriptorCount: descriptors,
		}},
	}
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(device, &dpci, nil, &pool), "vk.CreateDescriptorPool", AllocationFailed); err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func (dsm *DescriptorSetManager) growImagePools() error {
	pool, err := createPool(dsm.device, vk.DescriptorTypeCombinedImageSampler, ImagePoolSize, ImagePoolSize)
	if err != nil {
		return err
	}
	dsm.imagePools = append(dsm.imagePools, pool)
	log.WithField("pools", len(dsm.imagePools)).Debug("image descriptor pool added")
	return nil
}

func (dsm *DescriptorSetManager) allocateImageSet(pool int) (ImageSet, error) {
	sets, err := dsm.allocate(dsm.imagePools[pool], dsm.imageLayout, 1)
	if err != nil {
		return ImageSet{}, err
	}
	return ImageSet{Set: sets[0], pool: pool}, nil
}

func (dsm *DescriptorSetManager) allocate(pool vk.DescriptorPool, layout vk.DescriptorSetLayout, n uint32) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = layout
	}
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: n,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, n)
	if err := check(vk.AllocateDescriptorSets(dsm.device, &dsai, &sets[0]), "vk.AllocateDescriptorSets", AllocationFailed); err != nil {
		return nil, err
	}
	return sets, nil
}

// Layouts returns the set layouts in binding order: per-frame, per-texture.
func (dsm *DescriptorSetManager) Layouts() []vk.DescriptorSetLayout {
	return []vk.DescriptorSetLayout{dsm.bufferLayout, dsm.imageLayout}
}

// AllocBufferSets allocates n per-frame sets. Their bindings are written
// with WriteBufferSet.
func (dsm *DescriptorSetManager) AllocBufferSets(n uint32) ([]vk.DescriptorSet, error) {
	return dsm.allocate(dsm.bufferPool, dsm.bufferLayout, n)
}

// AllocImageSet returns a texture set, reusing a freed one when possible.
func (dsm *DescriptorSetManager) AllocImageSet() (ImageSet, error) {
	return dsm.images.alloc()
}

// FreeImageSet puts the set back for reuse. No command buffer still
// in flight may reference it.
func (dsm *DescriptorSetManager) FreeImageSet(set ImageSet) {
	dsm.images.release(set)
}

// WriteBufferSet points a per-frame set at its MVP and color uniform buffers.
func (dsm *DescriptorSetManager) WriteBufferSet(set vk.DescriptorSet, mvp, color *Buffer) {
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: mvp.Get(),
			Offset: 0,
			Range:  vk.DeviceSize(unsafe.Sizeof(model.Uniform{})),
		}},
	}, {
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      1,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: color.Get(),
			Offset: 0,
			Range:  vk.DeviceSize(color.Size()),
		}},
	}}
	vk.UpdateDescriptorSets(dsm.device, uint32(len(writes)), writes, 0, nil)
}

// WriteImageSet points a texture set at view, sampled through sampler.
func (dsm *DescriptorSetManager) WriteImageSet(set ImageSet, view vk.ImageView, sampler vk.Sampler) {
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set.Set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}}
	vk.UpdateDescriptorSets(dsm.device, uint32(len(writes)), writes, 0, nil)
}

// Release destroys the pools, which frees every set, then the layouts.
func (dsm *DescriptorSetManager) Release() {
	for _, pool := range dsm.imagePools {
		vk.DestroyDescriptorPool(dsm.device, pool, nil)
	}
	dsm.imagePools = nil
	if dsm.bufferPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dsm.device, dsm.bufferPool, nil)
	}
	if dsm.imageLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dsm.device, dsm.imageLayout, nil)
	}
	if dsm.bufferLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dsm.device, dsm.bufferLayout, nil)
	}
}
