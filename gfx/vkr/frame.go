// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// frameRing keeps track of which frame slot is recorded next and which
// slots still have work on the GPU.
type frameRing struct {
	current  uint32
	inFlight []bool
}

func newFrameRing(count uint32) frameRing {
	return frameRing{inFlight: make([]bool, count)}
}

func (r *frameRing) count() uint32 {
	return uint32(len(r.inFlight))
}

// completed marks the current slot's fence as signaled.
func (r *frameRing) completed() {
	r.inFlight[r.current] = false
}

// submitted marks the current slot as in flight. The slot must have
// completed first; recording over in-flight work is a bug.
func (r *frameRing) submitted() error {
	if r.inFlight[r.current] {
		return fmt.Errorf("frame slot %d submitted while still in flight", r.current)
	}
	r.inFlight[r.current] = true
	return nil
}

func (r *frameRing) advance() {
	r.current = (r.current + 1) % r.count()
}

// pending returns the number of slots with unsignaled fences.
func (r *frameRing) pending() int {
	n := 0
	for _, f := range r.inFlight {
		if f {
			n++
		}
	}
	return n
}

// frame holds the resources of one frame slot.
type frame struct {
	cmd            vk.CommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	fence          vk.Fence
	set            vk.DescriptorSet

	mvpStaging   *Buffer
	mvp          *Buffer
	colorStaging *Buffer
	color        *Buffer
}

func (f *frame) createSync(device vk.Device) error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	if err := check(vk.CreateSemaphore(device, &sci, nil, &f.imageAvailable), "vk.CreateSemaphore", InitializationFailed); err != nil {
		return err
	}
	if err := check(vk.CreateSemaphore(device, &sci, nil, &f.renderFinished), "vk.CreateSemaphore", InitializationFailed); err != nil {
		return err
	}
	return check(vk.CreateFence(device, &fci, nil, &f.fence), "vk.CreateFence", InitializationFailed)
}

func (f *frame) createUniforms(ctx *Context, mvpSize, colorSize uint) (err error) {
	staging := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	resident := vk.BufferUsageFlags(vk.BufferUsageTransferDstBit | vk.BufferUsageUniformBufferBit)

	if f.mvpStaging, err = NewBuffer(ctx, mvpSize, staging, HostVisible); err != nil {
		return
	}
	if f.mvp, err = NewBuffer(ctx, mvpSize, resident, DeviceLocal); err != nil {
		return
	}
	if f.colorStaging, err = NewBuffer(ctx, colorSize, staging, HostVisible); err != nil {
		return
	}
	f.color, err = NewBuffer(ctx, colorSize, resident, DeviceLocal)
	return
}

func releaseBuffer(b **Buffer) {
	if *b != nil {
		(*b).Release()
		*b = nil
	}
}

func (f *frame) release(device vk.Device) {
	if f.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, f.imageAvailable, nil)
	}
	if f.renderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(device, f.renderFinished, nil)
	}
	if f.fence != vk.NullFence {
		vk.DestroyFence(device, f.fence, nil)
	}
	releaseBuffer(&f.mvpStaging)
	releaseBuffer(&f.mvp)
	releaseBuffer(&f.colorStaging)
	releaseBuffer(&f.color)
}
