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

var (
	graphicsFamily = vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit), QueueCount: 1}
	computeFamily  = vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueComputeBit), QueueCount: 1}
	emptyFamily    = vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit), QueueCount: 0}
)

func presentOn(indices ...uint32) func(uint32) bool {
	return func(idx uint32) bool {
		for _, i := range indices {
			if i == idx {
				return true
			}
		}
		return false
	}
}

func TestPickQueueFamilies(t *testing.T) {
	tests := []struct {
		about    string
		families []vk.QueueFamilyProperties
		present  func(uint32) bool
		want     QueueFamilyIndices
	}{{
		about:    "single family does both",
		families: []vk.QueueFamilyProperties{graphicsFamily},
		present:  presentOn(0),
		want:     QueueFamilyIndices{Graphics: 0, Present: 0},
	}, {
		about:    "shared family preferred over split ones",
		families: []vk.QueueFamilyProperties{graphicsFamily, computeFamily, graphicsFamily},
		present:  presentOn(1, 2),
		want:     QueueFamilyIndices{Graphics: 2, Present: 2},
	}, {
		about:    "split families",
		families: []vk.QueueFamilyProperties{graphicsFamily, computeFamily},
		present:  presentOn(1),
		want:     QueueFamilyIndices{Graphics: 0, Present: 1},
	}, {
		about:    "families without queues are skipped",
		families: []vk.QueueFamilyProperties{emptyFamily, graphicsFamily},
		present:  presentOn(0, 1),
		want:     QueueFamilyIndices{Graphics: 1, Present: 1},
	}}

	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			got, err := pickQueueFamilies(test.families, test.present)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestPickQueueFamiliesMissing(t *testing.T) {
	c := qt.New(t)

	_, err := pickQueueFamilies([]vk.QueueFamilyProperties{computeFamily}, presentOn(0))
	c.Assert(err, qt.ErrorMatches, ".*no queue family supports graphics")
	c.Assert(IsKind(err, InitializationFailed), qt.IsTrue)

	_, err = pickQueueFamilies([]vk.QueueFamilyProperties{graphicsFamily}, presentOn())
	c.Assert(err, qt.ErrorMatches, ".*no queue family can present to the surface")
}

func TestQueueFamilyIndicesUnique(t *testing.T) {
	c := qt.New(t)
	c.Assert(QueueFamilyIndices{Graphics: 1, Present: 1}.Unique(), qt.DeepEquals, []uint32{1})
	c.Assert(QueueFamilyIndices{Graphics: 0, Present: 2}.Unique(), qt.DeepEquals, []uint32{0, 2})
	c.Assert(QueueFamilyIndices{Graphics: 0, Present: 2}.Shared(), qt.IsFalse)
}
