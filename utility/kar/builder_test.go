// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func newTestBuilder(c *qt.C) *Builder {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { builder.Close() })
	return builder
}

func TestAddAndWrite(t *testing.T) {
	c := qt.New(t)
	builder := newTestBuilder(c)

	c.Assert(builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.Len(), qt.Equals, 2)

	var buf bytes.Buffer
	num, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(buf.Len()))
	c.Assert(buf.Bytes()[:MagicLength], qt.DeepEquals, []byte("KAR\x00"))

	headerSize, err := decodePreamble(buf.Bytes())
	c.Assert(err, qt.IsNil)

	var header Header
	c.Assert(gobDecode(&header, buf.Bytes()[PreambleLength:PreambleLength+headerSize]), qt.IsNil)
	c.Assert(header.Author, qt.Equals, "devblok")
	c.Assert(header.Index, qt.HasLen, 2)
	c.Assert(header.Index[0].Offset, qt.Equals, int64(0))
	c.Assert(header.Index[1].Offset, qt.Equals, header.Index[0].CompressedSize)

	last := header.Index[1]
	c.Assert(PreambleLength+headerSize+last.Offset+last.CompressedSize, qt.Equals, int64(buf.Len()))
}

func TestAddReplacesSameName(t *testing.T) {
	c := qt.New(t)
	builder := newTestBuilder(c)

	c.Assert(builder.Add("a", strings.NewReader("first")), qt.IsNil)
	c.Assert(builder.Add("a", strings.NewReader("second")), qt.IsNil)
	c.Assert(builder.Len(), qt.Equals, 1)
	c.Assert(builder.files[0].Size, qt.Equals, int64(len("second")))
}

func TestBuilderClose(t *testing.T) {
	c := qt.New(t)
	builder := newTestBuilder(c)
	c.Assert(builder.Add("a", strings.NewReader("data")), qt.IsNil)
	c.Assert(builder.Close(), qt.IsNil)

	_, err := os.Stat(builder.tempDir)
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestDecodePreamble(t *testing.T) {
	c := qt.New(t)

	size, err := decodePreamble(encodePreamble(42))
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, int64(42))

	_, err = decodePreamble([]byte("KAR"))
	c.Assert(err, qt.Equals, ErrFileFormat)

	bad := encodePreamble(42)
	bad[0] = 'T'
	_, err = decodePreamble(bad)
	c.Assert(err, qt.Equals, ErrFileFormat)

	_, err = decodePreamble(encodePreamble(0))
	c.Assert(err, qt.Equals, ErrFileFormat)
}
