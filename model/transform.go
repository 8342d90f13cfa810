// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import glm "github.com/go-gl/mathgl/mgl32"

// Ortho builds an orthographic projection that maps the box
// [left,right]x[bottom,top]x[near,far] onto clip space, with
// (left, bottom) landing on (-1, -1).
func Ortho(right, left, bottom, top, far, near float32) glm.Mat4 {
	m := glm.Ident4()
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = 2 / (near - far)
	m[12] = (left + right) / (left - right)
	m[13] = (top + bottom) / (bottom - top)
	m[14] = (near + far) / (far - near)
	return m
}

// QuadModel places the unit quad at (x, y), scaled to scale and
// rotated by degrees around the z axis.
func QuadModel(x, y, degrees, scale float32) glm.Mat4 {
	return glm.Translate3D(x, y, 0).
		Mul4(glm.Scale3D(scale, scale, 1)).
		Mul4(glm.HomogRotate3DZ(glm.DegToRad(degrees)))
}
