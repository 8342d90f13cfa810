// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type layoutPair struct {
	old, new vk.ImageLayout
}

type barrierMasks struct {
	srcAccess, dstAccess vk.AccessFlags
	srcStage, dstStage   vk.PipelineStageFlags
}

// layoutTransitions are the only image layout changes the renderer makes.
var layoutTransitions = map[layoutPair]barrierMasks{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferSrcOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutPresentSrc}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferReadBit),
		dstAccess: 0,
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	},
}

func transitionFor(old, new vk.ImageLayout) (barrierMasks, error) {
	masks, ok := layoutTransitions[layoutPair{old, new}]
	if !ok {
		return barrierMasks{}, fmt.Errorf("unsupported layout transition %d -> %d", old, new)
	}
	return masks, nil
}

// recordTransition records an image memory barrier moving img from old to new.
func recordTransition(cmd vk.CommandBuffer, img vk.Image, old, new vk.ImageLayout) error {
	masks, err := transitionFor(old, new)
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           old,
		NewLayout:           new,
		SrcAccessMask:       masks.srcAccess,
		DstAccessMask:       masks.dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    colorSubresourceRange(),
	}

	vk.CmdPipelineBarrier(cmd, masks.srcStage, masks.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

func colorSubresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func colorSubresourceLayers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// copySize bounds a copy by both buffers' own logical sizes.
func copySize(src, dst *Buffer, size uint) uint {
	if size > src.Size() {
		size = src.Size()
	}
	if size > dst.Size() {
		size = dst.Size()
	}
	return size
}

func recordCopyBuffer(cmd vk.CommandBuffer, src, dst *Buffer, size uint) {
	vk.CmdCopyBuffer(cmd, src.Get(), dst.Get(), 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(copySize(src, dst, size)),
	}})
}

func recordCopyBufferToImage(cmd vk.CommandBuffer, src *Buffer, img vk.Image, width, height uint32) {
	vk.CmdCopyBufferToImage(cmd, src.Get(), img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource:  colorSubresourceLayers(),
		ImageOffset:       vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent:       vk.Extent3D{Width: width, Height: height, Depth: 1},
	}})
}

func recordCopyImageToBuffer(cmd vk.CommandBuffer, img vk.Image, dst *Buffer, width, height uint32) {
	vk.CmdCopyImageToBuffer(cmd, img, vk.ImageLayoutTransferSrcOptimal, dst.Get(), 1, []vk.BufferImageCopy{{
		BufferOffset:     0,
		ImageSubresource: colorSubresourceLayers(),
		ImageExtent:      vk.Extent3D{Width: width, Height: height, Depth: 1},
	}})
}

// CopyBuffer copies size bytes from src to dst with a one-shot command buffer.
func CopyBuffer(cm *CommandManager, queue vk.Queue, src, dst *Buffer, size uint) error {
	return cm.ExecuteCmd(queue, func(cmd vk.CommandBuffer) {
		recordCopyBuffer(cmd, src, dst, size)
	})
}
