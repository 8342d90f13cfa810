// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFilterSupported(t *testing.T) {
	c := qt.New(t)
	supported, missing := filterSupported(
		[]string{ValidationLayer, "VK_LAYER_missing", "VK_LAYER_other"},
		[]string{"VK_LAYER_other", ValidationLayer},
	)
	c.Assert(supported, qt.DeepEquals, []string{ValidationLayer, "VK_LAYER_other"})
	c.Assert(missing, qt.DeepEquals, []string{"VK_LAYER_missing"})

	supported, missing = filterSupported(nil, []string{"a"})
	c.Assert(supported, qt.HasLen, 0)
	c.Assert(missing, qt.HasLen, 0)
}

func TestSafeStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(safeStrings([]string{"a", "bc"}), qt.DeepEquals, []string{"a\x00", "bc\x00"})
	c.Assert(safeStrings(nil), qt.HasLen, 0)
}

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	c.Assert(sliceUint32([]byte{1, 2}), qt.IsNil)

	data := []byte{0x03, 0x02, 0x23, 0x07, 0xff, 0, 0, 0, 1}
	words := sliceUint32(data)
	c.Assert(words, qt.HasLen, 2)
	c.Assert(words[0], qt.Equals, uint32(spirvMagic))
	c.Assert(words[1], qt.Equals, uint32(0xff))
}

func TestClampUint32(t *testing.T) {
	c := qt.New(t)
	c.Assert(clampUint32(5, 1, 10), qt.Equals, uint32(5))
	c.Assert(clampUint32(0, 1, 10), qt.Equals, uint32(1))
	c.Assert(clampUint32(11, 1, 10), qt.Equals, uint32(10))
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		sliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		sliceUint32(data)
	}
}
