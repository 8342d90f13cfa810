// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrorKind classifies failures so the frame loop can decide
// whether to rebuild, retry next frame or give up.
type ErrorKind int

// Error kinds reported by the renderer.
const (
	InitializationFailed ErrorKind = iota
	DeviceLost
	SwapchainOutOfDate
	AllocationFailed
	PresentFailed
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case InitializationFailed:
		return "initialization failed"
	case DeviceLost:
		return "device lost"
	case SwapchainOutOfDate:
		return "swapchain out of date"
	case AllocationFailed:
		return "allocation failed"
	case PresentFailed:
		return "present failed"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a failed Vulkan call.
type Error struct {
	Kind   ErrorKind
	Op     string
	Result vk.Result

	// Err is set when the failure did not come with a vk.Result.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s(): %s: %s", e.Op, e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("%s(): %s (%d)", e.Op, e.Kind, int32(e.Result))
}

// Unwrap returns the underlying non-Vulkan error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the frame loop can carry on after the error.
func (e *Error) Recoverable() bool {
	return e.Kind == SwapchainOutOfDate || e.Kind == Timeout
}

// check turns a Vulkan result into an *Error, nil on success.
// fallback is used for results that do not map onto a more specific kind.
func check(ret vk.Result, op string, fallback ErrorKind) error {
	if ret == vk.Success {
		return nil
	}
	return &Error{
		Kind:   kindOf(ret, fallback),
		Op:     op,
		Result: ret,
	}
}

func initError(op string, err error) error {
	return &Error{
		Kind:   InitializationFailed,
		Op:     op,
		Result: vk.ErrorInitializationFailed,
		Err:    err,
	}
}

func kindOf(ret vk.Result, fallback ErrorKind) ErrorKind {
	switch ret {
	case vk.ErrorDeviceLost, vk.ErrorSurfaceLost:
		return DeviceLost
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return SwapchainOutOfDate
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorFragmentedPool:
		return AllocationFailed
	case vk.Timeout:
		return Timeout
	}
	return fallback
}

// IsKind reports whether err, or any error it wraps, is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Recoverable reports whether err, anywhere in its chain, is an *Error the
// frame loop can carry on after.
func Recoverable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Recoverable()
}
