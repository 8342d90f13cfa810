// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestIntervals(t *testing.T) {
	c := qt.New(t)
	c.Assert(frameInterval(0), qt.Equals, time.Nanosecond)
	c.Assert(frameInterval(50), qt.Equals, 20*time.Millisecond)
	c.Assert(pollInterval(0), qt.Equals, time.Millisecond)
	c.Assert(pollInterval(25), qt.Equals, 25*time.Millisecond)
}

func TestTimeTicks(t *testing.T) {
	c := qt.New(t)
	tm := NewTime(TimeConfiguration{FramesPerSecond: 1000, EventPollDelay: 1})
	defer tm.Stop()

	c.Assert(tm.Fps(), qt.Equals, 1000)
	select {
	case <-tm.FpsTicker().C:
	case <-time.After(time.Second):
		c.Fatal("fps ticker did not fire")
	}
	select {
	case <-tm.EventTicker().C:
	case <-time.After(time.Second):
		c.Fatal("event ticker did not fire")
	}
}
