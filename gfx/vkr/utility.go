// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"
)

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

// sliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// filterSupported keeps the requested names the implementation reports as
// available, and returns the rest separately so they can be logged.
func filterSupported(requested, available []string) (supported, missing []string) {
	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[a] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := set[r]; ok {
			supported = append(supported, r)
		} else {
			missing = append(missing, r)
		}
	}
	return
}

func clampUint32(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
