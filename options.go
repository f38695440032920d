// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

import (
	"go.uber.org/zap"
)

// Kind distinguishes gangs that serve the garbage collector from general
// purpose gangs. It affects only how worker goroutines are labeled.
type Kind int

const (
	GeneralPurpose Kind = iota
	GCTask
)

func (k Kind) String() string {
	switch k {
	case GeneralPurpose:
		return "general"
	case GCTask:
		return "gc"
	default:
		return "unknown"
	}
}

// An Option configures a [WorkGang] at construction.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	profilerLabels bool
}

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		profilerLabels: true,
	}
}

// WithLogger sets the logger the gang reports lifecycle events to. Events are
// logged at debug level. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// WithProfilerLabels controls whether worker goroutines run Work under
// runtime/pprof labels identifying the gang, its kind and the worker slot.
// Labels are enabled by default.
func WithProfilerLabels(enabled bool) Option {
	return func(o *options) {
		o.profilerLabels = enabled
	}
}
