// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package kar is an api for an lz4 backed file format.
// It's purpose is to be well suited for streaming resources
// from it. It's designed to be memory mapped, so (unlike tar) it knows
// where all the files are located before they're read. The archive itself
// is not compressed, rather every file is individually compressed, so it
// can be read from its place and decompressed on the fly. This trades some
// space for getting resources from disk to a usable state fast.
// Archives can be read from concurrently.
//
// Layout: the magic "KAR\x00", the gob encoded Header size as a little
// endian int64 padded to 16 bytes, the gob encoded Header, then the
// compressed files. Index offsets are relative to the end of the Header.
package kar

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/pkg/errors"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a kar archive")
	ErrNotFound   = errors.New("file not found in archive")
)

// Sizes relevant to the header of file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 16
	PreambleLength         = MagicLength + HeaderSizeNumberLength

	maxHeaderSize = 64 << 20
)

var magic = [MagicLength]byte{'K', 'A', 'R', '\x00'}

// IndexEntry is info for one file in the file index.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header for kar files.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

func encodePreamble(headerSize int64) []byte {
	preamble := make([]byte, PreambleLength)
	copy(preamble, magic[:])
	binary.LittleEndian.PutUint64(preamble[MagicLength:], uint64(headerSize))
	return preamble
}

func decodePreamble(preamble []byte) (int64, error) {
	if len(preamble) < PreambleLength || !bytes.Equal(preamble[:MagicLength], magic[:]) {
		return 0, ErrFileFormat
	}
	size := int64(binary.LittleEndian.Uint64(preamble[MagicLength:]))
	if size <= 0 || size > maxHeaderSize {
		return 0, ErrFileFormat
	}
	return size, nil
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(bts))
	return dec.Decode(obj)
}
