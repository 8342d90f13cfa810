// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the data shapes the renderer hands to the GPU:
// the quad vertices, uniform blocks and push constants.
package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// QuadScale is the edge length, in projection units, of a drawn texture quad.
const QuadScale = 400

// Vertex is a quad vertex, position and texture coordinate.
type Vertex struct {
	Pos glm.Vec2
	UV  glm.Vec2
}

// QuadVertices is the unit quad centered on the origin.
var QuadVertices = []Vertex{
	{Pos: glm.Vec2{-0.5, -0.5}, UV: glm.Vec2{0, 0}},
	{Pos: glm.Vec2{0.5, -0.5}, UV: glm.Vec2{1, 0}},
	{Pos: glm.Vec2{0.5, 0.5}, UV: glm.Vec2{1, 1}},
	{Pos: glm.Vec2{-0.5, 0.5}, UV: glm.Vec2{0, 1}},
}

// QuadIndices draws QuadVertices as two triangles.
var QuadIndices = []uint32{0, 1, 3, 1, 2, 3}

// Uniform defines the per-frame view-projection block, set 0 binding 0.
type Uniform struct {
	Projection glm.Mat4
	View       glm.Mat4
}

// Color is the global tint, set 0 binding 1.
type Color struct {
	R, G, B float32
}

// White leaves sampled texels untouched.
var White = Color{1, 1, 1}

// PushConstant is pushed once per draw to place the quad.
type PushConstant struct {
	Model glm.Mat4
}

// Bytes returns the uniform block as it is laid out in memory.
func (u *Uniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), unsafe.Sizeof(*u))
}

// Bytes returns the color as three packed floats.
func (c *Color) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(c)), unsafe.Sizeof(*c))
}

// VerticesBytes reinterprets vertices as raw bytes for upload.
func VerticesBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), uintptr(len(vertices))*unsafe.Sizeof(Vertex{}))
}

// IndicesBytes reinterprets indices as raw bytes for upload.
func IndicesBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
		},
	}
}
