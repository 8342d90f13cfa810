// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// NewCommandManager creates the command pool for the graphics queue family.
// Buffers from it can be reset individually.
func NewCommandManager(ctx *Context) (*CommandManager, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: ctx.QueueFamilies().Graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := check(vk.CreateCommandPool(ctx.Device(), &cpci, nil, &commandPool), "vk.CreateCommandPool", InitializationFailed); err != nil {
		return nil, err
	}

	return &CommandManager{
		device: ctx.Device(),
		pool:   commandPool,
	}, nil
}

// CommandManager hands out command buffers from a single pool.
type CommandManager struct {
	device vk.Device
	pool   vk.CommandPool
}

// CreateCommandBuffers allocates n primary command buffers.
func (cm *CommandManager) CreateCommandBuffers(n uint32) ([]vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cm.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: n,
	}

	commandBuffers := make([]vk.CommandBuffer, n)
	if err := check(vk.AllocateCommandBuffers(cm.device, &cbai, commandBuffers), "vk.AllocateCommandBuffers", AllocationFailed); err != nil {
		return nil, err
	}
	return commandBuffers, nil
}

// CreateOneCommandBuffer allocates a single primary command buffer.
func (cm *CommandManager) CreateOneCommandBuffer() (vk.CommandBuffer, error) {
	cmds, err := cm.CreateCommandBuffers(1)
	if err != nil {
		return nil, err
	}
	return cmds[0], nil
}

// FreeCmds returns the buffers to the pool.
func (cm *CommandManager) FreeCmds(cmds ...vk.CommandBuffer) {
	if len(cmds) == 0 {
		return
	}
	vk.FreeCommandBuffers(cm.device, cm.pool, uint32(len(cmds)), cmds)
}

// ExecuteCmd records a one-shot command buffer with record, submits it
// to queue and blocks until the queue is idle. Only for uploads and other
// rare work; it stalls the whole queue.
func (cm *CommandManager) ExecuteCmd(queue vk.Queue, record func(cmd vk.CommandBuffer)) error {
	cmd, err := cm.CreateOneCommandBuffer()
	if err != nil {
		return err
	}
	defer cm.FreeCmds(cmd)

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(cmd, &cbbi), "vk.BeginCommandBuffer", AllocationFailed); err != nil {
		return err
	}

	record(cmd)

	if err := check(vk.EndCommandBuffer(cmd), "vk.EndCommandBuffer", AllocationFailed); err != nil {
		return err
	}

	si := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}
	if err := check(vk.QueueSubmit(queue, 1, si, vk.NullFence), "vk.QueueSubmit", DeviceLost); err != nil {
		return err
	}
	return check(vk.QueueWaitIdle(queue), "vk.QueueWaitIdle", DeviceLost)
}

// Release destroys the pool and with it every buffer still allocated.
func (cm *CommandManager) Release() {
	vk.DestroyCommandPool(cm.device, cm.pool, nil)
}
