// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

func TestValidateSPIRV(t *testing.T) {
	tests := []struct {
		about string
		code  []byte
		err   string
	}{
		{"valid header", []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, ""},
		{"empty", nil, "shader code length 0 .*"},
		{"unaligned", []byte{0x03, 0x02, 0x23, 0x07, 0}, "shader code length 5 .*"},
		{"wrong magic", []byte{0x07, 0x23, 0x02, 0x03}, ".*SPIR-V magic number"},
	}
	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			err := validateSPIRV(test.code)
			if test.err == "" {
				c.Assert(err, qt.IsNil)
				return
			}
			c.Assert(err, qt.ErrorMatches, test.err)
		})
	}
}

func TestShaderTypeStage(t *testing.T) {
	c := qt.New(t)
	c.Assert(VertexShaderType.stage(), qt.Equals, vk.ShaderStageVertexBit)
	c.Assert(FragmentShaderType.stage(), qt.Equals, vk.ShaderStageFragmentBit)
	c.Assert(UnknownShaderType.stage(), qt.Equals, vk.ShaderStageFlagBits(0))
}
