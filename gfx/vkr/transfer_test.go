// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

func TestTransitionFor(t *testing.T) {
	c := qt.New(t)

	masks, err := transitionFor(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	c.Assert(err, qt.IsNil)
	c.Assert(masks.srcAccess, qt.Equals, vk.AccessFlags(0))
	c.Assert(masks.dstAccess, qt.Equals, vk.AccessFlags(vk.AccessTransferWriteBit))
	c.Assert(masks.srcStage, qt.Equals, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit))
	c.Assert(masks.dstStage, qt.Equals, vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	masks, err = transitionFor(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	c.Assert(err, qt.IsNil)
	c.Assert(masks.dstStage, qt.Equals, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit))
	c.Assert(masks.dstAccess, qt.Equals, vk.AccessFlags(vk.AccessShaderReadBit))
}

func TestTransitionForCaptureRoundTrip(t *testing.T) {
	c := qt.New(t)
	to, err := transitionFor(vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferSrcOptimal)
	c.Assert(err, qt.IsNil)
	back, err := transitionFor(vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutPresentSrc)
	c.Assert(err, qt.IsNil)
	c.Assert(to.dstAccess, qt.Equals, back.srcAccess)
}

func TestTransitionForUnsupported(t *testing.T) {
	c := qt.New(t)
	_, err := transitionFor(vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal)
	c.Assert(err, qt.ErrorMatches, "unsupported layout transition .*")
}

func TestCopySize(t *testing.T) {
	c := qt.New(t)
	small := &Buffer{size: 16}
	big := &Buffer{size: 64}

	c.Assert(copySize(big, big, 32), qt.Equals, uint(32))
	c.Assert(copySize(small, big, 64), qt.Equals, uint(16))
	c.Assert(copySize(big, small, 64), qt.Equals, uint(16))
	c.Assert(copySize(big, big, 128), qt.Equals, uint(64))
}
