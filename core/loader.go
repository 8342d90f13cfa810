// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/devblok/toy2d/gfx"
	"github.com/devblok/toy2d/utility/kar"
)

// decodePixels decodes an image in any registered format. Images with an
// edge longer than maxDimension are scaled down to fit, keeping the aspect
// ratio. A maxDimension of zero disables the limit.
func decodePixels(r io.Reader, maxDimension int) (gfx.Pixels, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return gfx.Pixels{}, err
	}

	bounds := img.Bounds()
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		log.WithFields(log.Fields{
			"format": format,
			"width":  bounds.Dx(),
			"height": bounds.Dy(),
			"max":    maxDimension,
		}).Warn("image larger than the device supports, scaling down")
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}
	return GetPixels(img), nil
}

// FileLoader loads textures from files below Root. Ids are slash
// separated paths relative to Root.
type FileLoader struct {
	Root         string
	MaxDimension int
}

// Load implements gfx.Loader
func (l FileLoader) Load(id string) (gfx.Pixels, error) {
	f, err := os.Open(filepath.Join(l.Root, filepath.FromSlash(id)))
	if err != nil {
		return gfx.Pixels{}, errors.Wrapf(err, "core.FileLoader.Load(%q)", id)
	}
	defer f.Close()

	pixels, err := decodePixels(f, l.MaxDimension)
	if err != nil {
		return gfx.Pixels{}, errors.Wrapf(err, "core.FileLoader.Load(%q)", id)
	}
	return pixels, nil
}

// NewArchiveLoader memory maps the kar archive at path.
func NewArchiveLoader(path string, maxDimension int) (*ArchiveLoader, error) {
	archive, err := kar.OpenFile(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":  path,
		"files": len(archive.Names()),
	}).Debug("asset archive opened")
	return &ArchiveLoader{archive: archive, MaxDimension: maxDimension}, nil
}

// ArchiveLoader loads textures out of a kar archive. Ids are the names
// the files were archived under.
type ArchiveLoader struct {
	archive      *kar.Archive
	MaxDimension int
}

// Load implements gfx.Loader
func (l *ArchiveLoader) Load(id string) (gfx.Pixels, error) {
	r, err := l.archive.Open(id)
	if err != nil {
		return gfx.Pixels{}, errors.Wrapf(err, "core.ArchiveLoader.Load(%q)", id)
	}
	pixels, err := decodePixels(r, l.MaxDimension)
	if err != nil {
		return gfx.Pixels{}, errors.Wrapf(err, "core.ArchiveLoader.Load(%q)", id)
	}
	return pixels, nil
}

// Release unmaps the archive.
func (l *ArchiveLoader) Release() {
	if err := l.archive.Close(); err != nil {
		log.WithError(err).Warn("closing asset archive")
	}
}
