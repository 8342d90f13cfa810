// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

// countingChain hands out increasing ints, grouped in pools of capacity.
func countingChain(capacity int) (*setChain[int], *int) {
	next := 0
	grown := 0
	chain := &setChain[int]{capacity: capacity}
	chain.grow = func() error {
		grown++
		return nil
	}
	chain.allocate = func(pool int) (int, error) {
		next++
		return next, nil
	}
	return chain, &grown
}

func TestSetChainGrowsByPools(t *testing.T) {
	c := qt.New(t)
	chain, grown := countingChain(2)

	for i := 1; i <= 5; i++ {
		set, err := chain.alloc()
		c.Assert(err, qt.IsNil)
		c.Assert(set, qt.Equals, i)
	}
	c.Assert(*grown, qt.Equals, 3)
	c.Assert(chain.pools, qt.Equals, 3)
	c.Assert(chain.live, qt.Equals, 5)
}

func TestSetChainReusesFreed(t *testing.T) {
	c := qt.New(t)
	chain, grown := countingChain(ImagePoolSize)

	sets := make([]int, ImagePoolSize)
	for i := range sets {
		var err error
		sets[i], err = chain.alloc()
		c.Assert(err, qt.IsNil)
	}
	c.Assert(*grown, qt.Equals, 1)

	// a full pool keeps serving once sets come back
	for round := 0; round < 3; round++ {
		chain.release(sets[3])
		set, err := chain.alloc()
		c.Assert(err, qt.IsNil)
		c.Assert(set, qt.Equals, sets[3])
	}
	c.Assert(*grown, qt.Equals, 1)
	c.Assert(chain.live, qt.Equals, ImagePoolSize)
}

func TestSetChainGrowFailure(t *testing.T) {
	c := qt.New(t)
	chain := &setChain[int]{
		capacity: 1,
		grow:     func() error { return errors.New("out of pool memory") },
		allocate: func(int) (int, error) { return 1, nil },
	}
	_, err := chain.alloc()
	c.Assert(err, qt.ErrorMatches, "out of pool memory")
	c.Assert(chain.pools, qt.Equals, 0)
	c.Assert(chain.live, qt.Equals, 0)
}
