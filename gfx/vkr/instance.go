// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// ValidationLayer is enabled in debug mode when the loader provides it.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// InstanceConfiguration describes how the Vulkan instance is created.
type InstanceConfiguration struct {
	ApplicationName string
	DebugMode       bool

	// Extensions are the instance extensions the window system needs.
	Extensions []string
	Layers     []string

	// ProcAddr is vkGetInstanceProcAddr as exported by the windowing
	// library. When nil the default loader is used.
	ProcAddr unsafe.Pointer
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint
}

// NewInstance loads the Vulkan loader and creates an instance.
func NewInstance(cfg InstanceConfiguration) (*Instance, error) {
	if cfg.ProcAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, initError("vk.SetDefaultGetInstanceProcAddr", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(cfg.ProcAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, initError("vk.Init", err)
	}

	layers := cfg.Layers
	if cfg.DebugMode {
		layers = append(layers, ValidationLayer)
	}
	layers, missing := filterSupported(layers, availableInstanceLayers())
	if len(missing) > 0 {
		log.WithField("layers", missing).Warn("requested layers are not available")
	}

	name := cfg.ApplicationName
	if name == "" {
		name = "toy2d"
	}
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(name),
		PEngineName:        safeString("toy2d"),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&instanceInfo, nil, &instance), "vk.CreateInstance", InitializationFailed); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, initError("vk.InitInstance", err)
	}

	devices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	log.WithFields(log.Fields{
		"extensions": cfg.Extensions,
		"layers":     layers,
		"devices":    len(devices),
	}).Debug("vulkan instance created")

	return &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: devices,
	}, nil
}

// Instance wraps the Vulkan API instance and the devices it can see.
type Instance struct {
	configuration InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	instance         vk.Instance
}

func availableInstanceLayers() []string {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return nil
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := check(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil), "vk.EnumeratePhysicalDevices", InitializationFailed); err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, &Error{Kind: InitializationFailed, Op: "vk.EnumeratePhysicalDevices", Result: vk.ErrorIncompatibleDriver}
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := check(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices), "vk.EnumeratePhysicalDevices", InitializationFailed); err != nil {
		return nil, err
	}
	return availableDevices, nil
}

func deviceExtensions(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(device, "", &count, nil), "vk.EnumerateDeviceExtensionProperties", InitializationFailed); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateDeviceExtensionProperties(device, "", &count, props), "vk.EnumerateDeviceExtensionProperties", InitializationFailed); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range props {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// PhysicalDevicesInfo returns a description of every device the instance sees.
func (i *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(i.availableDevices))
	for idx, device := range i.availableDevices {
		if extensions, err := deviceExtensions(device); err != nil {
			pdi[idx].Invalid = true
		} else {
			pdi[idx].Extensions = extensions
		}

		var numDeviceLayers uint32
		if vk.EnumerateDeviceLayerProperties(device, &numDeviceLayers, nil) != vk.Success {
			pdi[idx].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if vk.EnumerateDeviceLayerProperties(device, &numDeviceLayers, deviceLayers) != vk.Success {
			pdi[idx].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[idx].Layers = append(pdi[idx].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[idx].Memory += uint(memoryProperties.MemoryHeaps[iMem].Size)
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()
		pdi[idx].ID = int(properties.DeviceID)
		pdi[idx].VendorID = int(properties.VendorID)
		pdi[idx].Name = vk.ToString(properties.DeviceName[:])
		pdi[idx].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// Handle returns the raw vk.Instance, needed by window system surface factories.
func (i *Instance) Handle() vk.Instance {
	return i.instance
}

// AvailableDevices returns the enumerated physical devices.
func (i *Instance) AvailableDevices() []vk.PhysicalDevice {
	return i.availableDevices
}

// Release destroys the instance.
func (i *Instance) Release() {
	i.availableDevices = nil
	vk.DestroyInstance(i.instance, nil)
}
