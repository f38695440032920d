// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otwg

import (
	"context"

	"github.com/petenewcomb/workgang-go"
	"go.uber.org/zap"
)

// Instrument applies logging, metrics and tracing to task in one step. The
// span around each Work call covers the time spent logging and recording
// metrics for it.
func Instrument(ctx context.Context, logger *zap.Logger, operationName string, task workgang.Task) (workgang.Task, error) {
	logged := NewLoggedTask(logger, operationName, task)
	metered, err := NewMetricsTask(operationName, logged)
	if err != nil {
		return nil, err
	}
	return NewTracedTask(ctx, operationName, metered), nil
}
