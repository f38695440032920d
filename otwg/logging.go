// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otwg

import (
	"time"

	"github.com/petenewcomb/workgang-go"
	"go.uber.org/zap"
)

// LoggedTask wraps a task to log the start and end of every Work call and
// every coordinator callback at debug level.
type LoggedTask struct {
	workgang.Task
	logger *zap.Logger
}

// NewLoggedTask wraps task, logging through logger with an "operation" field
// set to operationName. A nil logger means the global zap logger.
func NewLoggedTask(logger *zap.Logger, operationName string, task workgang.Task) *LoggedTask {
	if logger == nil {
		logger = zap.L()
	}
	return &LoggedTask{
		Task: task,
		logger: logger.With(
			zap.String("operation", operationName),
			zap.String("component", "otwg")),
	}
}

func (t *LoggedTask) Work(worker int) {
	t.logger.Debug("work started", zap.Int("worker", worker))
	startTime := time.Now()
	t.Task.Work(worker)
	t.logger.Debug("work finished",
		zap.Int("worker", worker),
		zap.Duration("duration", time.Since(startTime)))
}

func (t *LoggedTask) CoordinatorYield() {
	startTime := time.Now()
	t.Task.CoordinatorYield()
	t.logger.Debug("coordinator yield",
		zap.Duration("duration", time.Since(startTime)))
}
