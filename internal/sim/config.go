// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"time"
)

var DefaultConfig = Config{
	Workers:       BiasedIntConfig{Min: 1, Med: 4, Max: 8},
	TaskCount:     BiasedIntConfig{Min: 1, Med: 2, Max: 5},
	RequestedSize: BiasedIntConfig{Min: 0, Med: 4, Max: 10},
	Script: ScriptConfig{
		Length:                BiasedIntConfig{Min: 0, Med: 3, Max: 8},
		SpinDuration:          BiasedDurationConfig{Min: 0, Med: 10 * time.Microsecond, Max: 200 * time.Microsecond},
		YieldProbability:      0.3,
		AbortPointProbability: 0.01,
	},
	OverseerAbortProbability: 0.1,
}

type Config struct {
	Workers       BiasedIntConfig
	TaskCount     BiasedIntConfig
	RequestedSize BiasedIntConfig
	Script        ScriptConfig

	// OverseerAbortProbability is the chance that the overseer aborts a task
	// after one of its yields instead of continuing it.
	OverseerAbortProbability float64
}

type ScriptConfig struct {
	Length       BiasedIntConfig
	SpinDuration BiasedDurationConfig

	// Each step is a yield point with probability YieldProbability, failing
	// that an abort point with probability AbortPointProbability, and
	// otherwise a spin.
	YieldProbability      float64
	AbortPointProbability float64
}
