// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"time"

	"pgregory.net/rapid"
)

type BiasedIntConfig struct {
	Min int
	Med int
	Max int
}

func (c *BiasedIntConfig) Draw(t *rapid.T, name string) int {
	if c.Med < c.Min || c.Max < c.Med {
		panic(fmt.Sprint("invalid BiasedIntConfig:", *c))
	}
	return rapid.Custom(func(t *rapid.T) int {
		// Generate a value in the range [min-med, max-med] instead of [min,
		// max] to take advantage of rapid's bias toward generating numbers near
		// zero as well as at the provided bounds.
		return c.Med + rapid.IntRange(c.Min-c.Med, c.Max-c.Med).Draw(t, name+"(internal)")
	}).Draw(t, name)
}

type BiasedDurationConfig struct {
	Min time.Duration
	Med time.Duration
	Max time.Duration
}

func (c *BiasedDurationConfig) Draw(t *rapid.T, name string) time.Duration {
	if c.Med < c.Min || c.Max < c.Med {
		panic(fmt.Sprint("invalid BiasedDurationConfig:", *c))
	}
	return rapid.Custom(func(t *rapid.T) time.Duration {
		// Generate a value in the range [min-med, max-med] instead of [min,
		// max] to take advantage of rapid's bias toward generating numbers near
		// zero as well as at the provided bounds.
		return c.Med + time.Duration(rapid.Int64Range(int64(c.Min-c.Med), int64(c.Max-c.Med)).
			Draw(t, name+"(internal)"))
	}).Draw(t, name)
}

// BiasedBool returns a generator of booleans that are true with probability p.
// The bounds are exact: p <= 0 never yields true and p >= 1 always does.
func BiasedBool(p float64) *rapid.Generator[bool] {
	return rapid.Custom(func(t *rapid.T) bool {
		switch {
		case p <= 0:
			return false
		case p >= 1:
			return true
		}
		return rapid.Float64Range(0, 1).Draw(t, "p") < p
	})
}
