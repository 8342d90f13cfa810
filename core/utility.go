// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	"image/draw"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/toy2d/gfx"
	"github.com/devblok/toy2d/gfx/vkr"
	"github.com/pkg/errors"
)

const shaderSuffix = ".spv"

// loadShaderFilesFromDirectory get the list of files that are compiled shaders
// it is important that the file name does not contain more than two dots,
// the first is always the name of the shader, second is type, and the third one
// ensured that the shader is compiled (only compiled shaders have an .spv extension).
// Only shaders called name are returned.
func loadShaderFilesFromDirectory(dir, name string) (map[vkr.ShaderType]string, error) {
	shaders := make(map[vkr.ShaderType]string)
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if f.IsDir() || !strings.HasSuffix(f.Name(), shaderSuffix) {
			return nil
		}
		nodes := strings.Split(strings.TrimSuffix(f.Name(), shaderSuffix), ".")
		if len(nodes) != 2 || nodes[0] != name {
			return nil
		}

		switch nodes[1] {
		case "frag":
			shaders[vkr.FragmentShaderType] = path
		case "vert":
			shaders[vkr.VertexShaderType] = path
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return shaders, nil
}

// loadShaders reads the vertex and fragment SPIR-V of the named shader.
func loadShaders(dir, name string) (vertex, fragment []byte, err error) {
	paths, err := loadShaderFilesFromDirectory(dir, name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "core.loadShaders(%q)", dir)
	}

	vertexPath, ok := paths[vkr.VertexShaderType]
	if !ok {
		return nil, nil, errors.Errorf("core.loadShaders(%q): %s.vert%s not found", dir, name, shaderSuffix)
	}
	fragmentPath, ok := paths[vkr.FragmentShaderType]
	if !ok {
		return nil, nil, errors.Errorf("core.loadShaders(%q): %s.frag%s not found", dir, name, shaderSuffix)
	}

	if vertex, err = ioutil.ReadFile(vertexPath); err != nil {
		return nil, nil, errors.Wrap(err, "core.loadShaders()")
	}
	if fragment, err = ioutil.ReadFile(fragmentPath); err != nil {
		return nil, nil, errors.Wrap(err, "core.loadShaders()")
	}
	return vertex, fragment, nil
}

// GetPixels transforms a given image into tightly packed RGBA8 pixels
// by drawing the decoded image onto a controlled RGBA canvas. Colors
// end up premultiplied by alpha, which is what the pipeline blends with.
func GetPixels(img image.Image) gfx.Pixels {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return gfx.Pixels{Data: rgba.Pix[:4*bounds.Dx()*bounds.Dy()], Width: bounds.Dx(), Height: bounds.Dy()}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return gfx.Pixels{Data: canvas.Pix, Width: bounds.Dx(), Height: bounds.Dy()}
}
