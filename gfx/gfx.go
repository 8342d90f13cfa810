// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related features that renderers must implement.
package gfx

import "errors"

// ErrInvalidPixels is returned when pixel data does not describe a usable image.
var ErrInvalidPixels = errors.New("pixel data has non-positive dimensions or wrong length")

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent2D is a two dimensional size in pixels.
type Extent2D struct {
	Width, Height uint32
}

// Extent3D is a three dimensional size in pixels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Pixels is a decoded image, tightly packed RGBA8.
type Pixels struct {
	Data   []byte
	Width  int
	Height int
}

// Validate checks that the dimensions are positive and that
// Data holds exactly Width*Height*4 bytes.
func (p Pixels) Validate() error {
	if p.Width <= 0 || p.Height <= 0 || len(p.Data) != p.Width*p.Height*4 {
		return ErrInvalidPixels
	}
	return nil
}

// Extent returns the size of the image as an Extent3D with depth 1.
func (p Pixels) Extent() Extent3D {
	return Extent3D{
		Width:  uint32(p.Width),
		Height: uint32(p.Height),
		Depth:  1,
	}
}

// Loader describes a resource loader mechanism.
type Loader interface {

	// Load tries to find and decode the image
	// asociated with the provided id.
	Load(id string) (Pixels, error)
}
