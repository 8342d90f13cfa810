// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Usual memory property combinations.
const (
	HostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	DeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// NewBuffer creates, configures, allocates and binds a new buffer.
// Host visible memory stays mapped until Release.
func NewBuffer(ctx *Context, size uint, usage vk.BufferUsageFlags, prop vk.MemoryPropertyFlags) (*Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := check(vk.CreateBuffer(ctx.Device(), &createInfo, nil, &buffer), "vk.CreateBuffer", AllocationFailed); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.Device(), buffer, &req)
	req.Deref()

	memory, err := ctx.Allocator().Malloc(req, prop)
	if err != nil {
		vk.DestroyBuffer(ctx.Device(), buffer, nil)
		return nil, err
	}

	if err := check(vk.BindBufferMemory(ctx.Device(), buffer, memory.Get(), vk.DeviceSize(memory.Offset())), "vk.BindBufferMemory", AllocationFailed); err != nil {
		vk.DestroyBuffer(ctx.Device(), buffer, nil)
		memory.Release()
		return nil, err
	}

	b := &Buffer{
		device: ctx.Device(),
		buffer: buffer,
		size:   size,
		memory: memory,
	}

	if prop&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		if _, err := b.memory.Map(); err != nil {
			b.Release()
			return nil, err
		}
	}
	return b, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint

	memory Memory
}

// Size is the logical size the buffer was created with. Copies out of
// or into the buffer are bounded by it.
func (b *Buffer) Size() uint {
	return b.size
}

// Allocated is the size of the backing allocation as reported by
// the driver, never smaller than Size.
func (b *Buffer) Allocated() uint {
	return b.memory.Len()
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Mapped returns the persistent host pointer, nil for device local buffers.
func (b *Buffer) Mapped() unsafe.Pointer {
	return b.memory.Mapped()
}

// Write copies data to the start of a host visible buffer.
func (b *Buffer) Write(data []byte) error {
	ptr := b.memory.Mapped()
	if ptr == nil {
		return fmt.Errorf("vkr.Buffer.Write(): buffer is not host visible")
	}
	if uint(len(data)) > b.size {
		return fmt.Errorf("vkr.Buffer.Write(): %d bytes do not fit in %d", len(data), b.size)
	}
	vk.Memcopy(ptr, data)
	return nil
}

// Read copies the contents of a host visible buffer out.
func (b *Buffer) Read() ([]byte, error) {
	ptr := b.memory.Mapped()
	if ptr == nil {
		return nil, fmt.Errorf("vkr.Buffer.Read(): buffer is not host visible")
	}
	out := make([]byte, b.size)
	copy(out, unsafe.Slice((*byte)(ptr), b.size))
	return out, nil
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Release unmaps, destroys the buffer and frees its memory, in that order.
func (b *Buffer) Release() {
	b.memory.Unmap()
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
}
