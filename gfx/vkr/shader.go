// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// spirvMagic opens every SPIR-V module.
const spirvMagic = 0x07230203

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (t ShaderType) stage() vk.ShaderStageFlagBits {
	switch t {
	case VertexShaderType:
		return vk.ShaderStageVertexBit
	case FragmentShaderType:
		return vk.ShaderStageFragmentBit
	}
	return 0
}

func validateSPIRV(code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return fmt.Errorf("shader code length %d is not a positive multiple of 4", len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic {
		return fmt.Errorf("shader code does not start with the SPIR-V magic number")
	}
	return nil
}

// NewShader creates the vertex and fragment shader modules from SPIR-V bytes.
func NewShader(ctx *Context, vertex, fragment []byte) (*Shader, error) {
	s := &Shader{device: ctx.Device()}

	vert, err := s.createModule(VertexShaderType, vertex)
	if err != nil {
		return nil, err
	}
	s.modules[VertexShaderType] = vert

	frag, err := s.createModule(FragmentShaderType, fragment)
	if err != nil {
		vk.DestroyShaderModule(s.device, vert, nil)
		return nil, err
	}
	s.modules[FragmentShaderType] = frag

	return s, nil
}

// Shader holds the two shader stages of the pipeline.
type Shader struct {
	device  vk.Device
	modules [UnknownShaderType]vk.ShaderModule
}

func (s *Shader) createModule(shaderType ShaderType, code []byte) (vk.ShaderModule, error) {
	if err := validateSPIRV(code); err != nil {
		return vk.NullShaderModule, initError(fmt.Sprintf("vkr.NewShader(type %d)", shaderType), err)
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(s.device, &smci, nil, &module), "vk.CreateShaderModule", InitializationFailed); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}

// Stages describes the modules for pipeline creation.
func (s *Shader) Stages() []vk.PipelineShaderStageCreateInfo {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(s.modules))
	for t, module := range s.modules {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  ShaderType(t).stage(),
			Module: module,
			PName:  safeString("main"),
		})
	}
	return stages
}

// Release destroys both modules.
func (s *Shader) Release() {
	for _, module := range s.modules {
		vk.DestroyShaderModule(s.device, module, nil)
	}
}
