// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/devblok/toy2d/gfx/vkr"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	Instance vkr.InstanceConfiguration
	Assets   AssetConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32
	ScreenHeight uint32

	// SwapchainSize is the requested number of swapchain images,
	// clamped into what the surface supports.
	SwapchainSize  uint32
	MaxFlightCount uint32

	// Shaders are taken from VertexShader and FragmentShader when set,
	// otherwise ShaderName.vert.spv and ShaderName.frag.spv are looked
	// up in ShaderDirectory.
	ShaderDirectory string
	ShaderName      string
	VertexShader    []byte
	FragmentShader  []byte

	CullMode     vkr.CullMode
	FenceTimeout time.Duration
	ClearColor   [4]float32
}

// AssetConfiguration tells the engine where textures are loaded from.
// An Archive takes precedence over the Directory.
type AssetConfiguration struct {
	Directory string
	Archive   string
}

// DefaultConfiguration returns the configuration the sandbox runs with.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			ScreenWidth:     1024,
			ScreenHeight:    720,
			SwapchainSize:   3,
			MaxFlightCount:  2,
			ShaderDirectory: "./shaders",
			ShaderName:      "shader",
			CullMode:        vkr.CullNone,
			FenceTimeout:    vkr.DefaultFenceTimeout,
			ClearColor:      [4]float32{0.1, 0.1, 0.1, 1},
		},
		Instance: vkr.InstanceConfiguration{
			ApplicationName: "toy2d",
		},
		Assets: AssetConfiguration{
			Directory: "./assets",
		},
	}
}
