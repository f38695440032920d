// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sim provides a way to generate and execute simulated workgang
// tasks. A plan describes a gang and a sequence of tasks to run on it, one
// after another. Each task gives every one of its worker indexes a script of
// steps: spinning for a while, yielding the gang, or aborting the task. The
// overseer may also abort a task after a number of yields. New plans are
// generated according to a set of configuration parameters that determine
// their size and how often each kind of step appears.
package sim
