// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"image"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrNoCapture is returned by Capture when no frame was captured.
var ErrNoCapture = errors.New("no frame captured")

// CaptureNextFrame makes the next EndRender copy the rendered image into
// host memory, to be read with Capture. The readback buffer is allocated
// here so a frame being recorded never fails on it.
func (r *Renderer) CaptureNextFrame() error {
	if !r.swapchain.CanCapture() {
		return errors.New("vkr.Renderer.CaptureNextFrame(): swapchain images cannot be read back")
	}
	if err := r.prepareCapture(); err != nil {
		return err
	}
	r.captureNext = true
	return nil
}

func captureSize(extent vk.Extent2D) uint {
	return uint(extent.Width) * uint(extent.Height) * 4
}

// prepareCapture sizes the readback buffer to the swapchain extent.
func (r *Renderer) prepareCapture() error {
	size := captureSize(r.swapchain.Info().Extent)
	if r.capture != nil && r.capture.Size() == size {
		return nil
	}
	if r.capture != nil {
		if err := r.ctx.WaitIdle(); err != nil {
			return err
		}
		releaseBuffer(&r.capture)
		r.captureFrame = -1
	}

	buffer, err := NewBuffer(r.ctx, size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), HostVisible)
	if err != nil {
		return errors.Wrap(err, "vkr.Renderer.CaptureNextFrame()")
	}
	r.capture = buffer
	return nil
}

// recordCapture copies the presented image of f into the capture buffer,
// leaving the image ready for presentation again. Without a buffer of the
// right size nothing is recorded and the capture waits for a later frame.
func (r *Renderer) recordCapture(f *frame) (bool, error) {
	info := r.swapchain.Info()
	if r.capture == nil || r.capture.Size() != captureSize(info.Extent) {
		return false, nil
	}

	img := r.swapchain.Image(r.imageIndex)
	if err := recordTransition(f.cmd, img, vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferSrcOptimal); err != nil {
		return false, err
	}
	recordCopyImageToBuffer(f.cmd, img, r.capture, info.Extent.Width, info.Extent.Height)
	if err := recordTransition(f.cmd, img, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutPresentSrc); err != nil {
		return false, err
	}

	r.captureExtent = info.Extent
	r.captureFormat = info.Format.Format
	return true, nil
}

// Capture waits for the captured frame to finish and returns its pixels.
func (r *Renderer) Capture() (*image.RGBA, error) {
	if r.captureFrame < 0 {
		return nil, ErrNoCapture
	}
	f := &r.frames[r.captureFrame]
	r.captureFrame = -1

	err := check(vk.WaitForFences(r.ctx.Device(), 1, []vk.Fence{f.fence}, vk.True, uint64(r.cfg.FenceTimeout.Nanoseconds())), "vk.WaitForFences", DeviceLost)
	if err != nil {
		return nil, err
	}

	data, err := r.capture.Read()
	if err != nil {
		return nil, err
	}
	return toRGBA(data, int(r.captureExtent.Width), int(r.captureExtent.Height), r.captureFormat), nil
}

// toRGBA copies tightly packed 4 byte pixels into an image, swapping the
// red and blue channels of BGRA formats.
func toRGBA(data []byte, width, height int, format vk.Format) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := copy(img.Pix, data)

	switch format {
	case vk.FormatB8g8r8a8Srgb, vk.FormatB8g8r8a8Unorm:
		for i := 0; i+3 < n; i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img
}
