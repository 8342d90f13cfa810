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

// SurfaceFactory bridges to the windowing library: given the
// instance, it returns the surface to present on.
type SurfaceFactory func(instance vk.Instance) (vk.Surface, error)

// QueueFamilyIndices are the queue families used for drawing and presenting.
type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
}

// Shared reports whether one family serves both graphics and present.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

// Unique lists the distinct family indices.
func (q QueueFamilyIndices) Unique() []uint32 {
	if q.Shared() {
		return []uint32{q.Graphics}
	}
	return []uint32{q.Graphics, q.Present}
}

// pickQueueFamilies takes the first family able to draw and the first able
// to present, but prefers a single family that can do both.
func pickQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(idx uint32) bool) (QueueFamilyIndices, error) {
	var (
		indices                 QueueFamilyIndices
		hasGraphics, hasPresent bool
	)
	for i := range families {
		idx := uint32(i)
		family := families[i]
		family.Deref()

		graphics := family.QueueCount > 0 && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		present := family.QueueCount > 0 && presentSupport(idx)

		if graphics && present {
			return QueueFamilyIndices{Graphics: idx, Present: idx}, nil
		}
		if graphics && !hasGraphics {
			indices.Graphics, hasGraphics = idx, true
		}
		if present && !hasPresent {
			indices.Present, hasPresent = idx, true
		}
	}

	if !hasGraphics {
		return indices, initError("vkr.pickQueueFamilies", fmt.Errorf("no queue family supports graphics"))
	}
	if !hasPresent {
		return indices, initError("vkr.pickQueueFamilies", fmt.Errorf("no queue family can present to the surface"))
	}
	return indices, nil
}

// NewContext brings up everything rendering needs from the API: the instance,
// the window surface, a logical device on the first physical device and
// its queues. On failure nothing created so far is left alive.
func NewContext(cfg InstanceConfiguration, createSurface SurfaceFactory) (ctx *Context, err error) {
	instance, err := NewInstance(cfg)
	if err != nil {
		return nil, err
	}

	ctx = &Context{
		instance:       instance,
		physicalDevice: instance.AvailableDevices()[0],
	}
	defer func() {
		if err != nil {
			ctx.Release()
			ctx = nil
		}
	}()

	surface, err := createSurface(instance.Handle())
	if err != nil {
		return ctx, initError("vkr.SurfaceFactory", err)
	}
	ctx.surface = surface

	extensions, err := deviceExtensions(ctx.physicalDevice)
	if err != nil {
		return ctx, err
	}
	if _, missing := filterSupported([]string{vk.KhrSwapchainExtensionName}, extensions); len(missing) > 0 {
		return ctx, initError("vkr.NewContext", fmt.Errorf("device does not support %v", missing))
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(ctx.physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(ctx.physicalDevice, &familyCount, families)

	ctx.queueFamilies, err = pickQueueFamilies(families, func(idx uint32) bool {
		var supported vk.Bool32
		if vk.GetPhysicalDeviceSurfaceSupport(ctx.physicalDevice, idx, ctx.surface, &supported) != vk.Success {
			return false
		}
		return supported.B()
	})
	if err != nil {
		return ctx, err
	}

	if err := ctx.createDevice(); err != nil {
		return ctx, err
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(ctx.physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()
	ctx.maxImageDimension2D = properties.Limits.MaxImageDimension2D

	ctx.allocator = NewMemoryAllocator(ctx.device, ctx.physicalDevice)

	log.WithFields(log.Fields{
		"device":   vk.ToString(properties.DeviceName[:]),
		"graphics": ctx.queueFamilies.Graphics,
		"present":  ctx.queueFamilies.Present,
	}).Info("vulkan device ready")

	return ctx, nil
}

// Context owns the instance, surface, logical device and queues.
// Its handles are read-only once NewContext returns.
type Context struct {
	instance       *Instance
	physicalDevice vk.PhysicalDevice
	surface        vk.Surface
	device         vk.Device

	queueFamilies QueueFamilyIndices
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	allocator           *MemoryAllocator
	maxImageDimension2D uint32
}

func (c *Context) createDevice() error {
	var queueInfos []vk.DeviceQueueCreateInfo
	for _, family := range c.queueFamilies.Unique() {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		})
	}

	requiredExtensions := []string{vk.KhrSwapchainExtensionName}
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredExtensions),
	}

	var device vk.Device
	if err := check(vk.CreateDevice(c.physicalDevice, &dci, nil, &device), "vk.CreateDevice", InitializationFailed); err != nil {
		return err
	}
	c.device = device

	vk.GetDeviceQueue(device, c.queueFamilies.Graphics, 0, &c.graphicsQueue)
	vk.GetDeviceQueue(device, c.queueFamilies.Present, 0, &c.presentQueue)
	return nil
}

// Device returns the logical device.
func (c *Context) Device() vk.Device {
	return c.device
}

// PhysicalDevice returns the physical device in use.
func (c *Context) PhysicalDevice() vk.PhysicalDevice {
	return c.physicalDevice
}

// Surface returns the window surface.
func (c *Context) Surface() vk.Surface {
	return c.surface
}

// Instance returns the owned instance.
func (c *Context) Instance() *Instance {
	return c.instance
}

// QueueFamilies returns the resolved queue family indices.
func (c *Context) QueueFamilies() QueueFamilyIndices {
	return c.queueFamilies
}

// GraphicsQueue returns the queue draws are submitted to.
func (c *Context) GraphicsQueue() vk.Queue {
	return c.graphicsQueue
}

// PresentQueue returns the queue images are presented on. It may be
// the same queue as GraphicsQueue.
func (c *Context) PresentQueue() vk.Queue {
	return c.presentQueue
}

// Allocator returns the device memory allocator.
func (c *Context) Allocator() *MemoryAllocator {
	return c.allocator
}

// MaxImageDimension2D is the largest texture edge the device accepts.
func (c *Context) MaxImageDimension2D() uint32 {
	return c.maxImageDimension2D
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	return check(vk.DeviceWaitIdle(c.device), "vk.DeviceWaitIdle", DeviceLost)
}

// Release destroys the surface, the device and the instance, in that order.
// Everything created from the device must be released before.
func (c *Context) Release() {
	if c.surface != vk.NullSurface {
		vk.DestroySurface(c.instance.Handle(), c.surface, nil)
		c.surface = vk.NullSurface
	}
	if c.device != nil {
		vk.DestroyDevice(c.device, nil)
		c.device = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
