// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFrameRingCycles(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(3)

	var order []uint32
	for i := 0; i < 7; i++ {
		order = append(order, ring.current)
		ring.advance()
	}
	c.Assert(order, qt.DeepEquals, []uint32{0, 1, 2, 0, 1, 2, 0})
}

func TestFrameRingBoundsInFlight(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(2)

	for frame := 0; frame < 10; frame++ {
		ring.completed()
		c.Assert(ring.submitted(), qt.IsNil)
		c.Assert(ring.pending() <= int(ring.count()), qt.IsTrue)
		ring.advance()
	}
	c.Assert(ring.pending(), qt.Equals, 2)
}

func TestFrameRingRejectsUnwaitedSlot(t *testing.T) {
	c := qt.New(t)
	ring := newFrameRing(1)

	c.Assert(ring.submitted(), qt.IsNil)
	ring.advance()
	c.Assert(ring.submitted(), qt.ErrorMatches, "frame slot 0 submitted while still in flight")

	ring.completed()
	c.Assert(ring.submitted(), qt.IsNil)
}
