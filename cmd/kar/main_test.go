// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/toy2d/utility/kar"
)

func TestCompressExtract(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	src := filepath.Join(dir, "assets")
	c.Assert(os.MkdirAll(filepath.Join(src, "sprites"), 0755), qt.IsNil)
	c.Assert(ioutil.WriteFile(filepath.Join(src, "player.png"), []byte("player"), 0644), qt.IsNil)
	c.Assert(ioutil.WriteFile(filepath.Join(src, "sprites", "enemy.png"), []byte("enemy"), 0644), qt.IsNil)

	archivePath := filepath.Join(dir, "assets.kar")
	c.Assert(compressFiles(src, archivePath), qt.IsNil)

	archive, err := kar.OpenFile(archivePath)
	c.Assert(err, qt.IsNil)
	c.Assert(archive.Names(), qt.DeepEquals, []string{"player.png", "sprites/enemy.png"})
	c.Assert(archive.Header().Version, qt.Equals, int64(1))
	c.Assert(archive.Close(), qt.IsNil)

	out := filepath.Join(dir, "out")
	c.Assert(extractFiles(archivePath, out), qt.IsNil)
	data, err := ioutil.ReadFile(filepath.Join(out, "sprites", "enemy.png"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "enemy")
}

func TestCompressWillNotOverwrite(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	dst := filepath.Join(dir, "exists.kar")
	c.Assert(ioutil.WriteFile(dst, nil, 0644), qt.IsNil)

	c.Assert(compressFiles(dir, dst), qt.ErrorMatches, ".*will not overwrite")
}
