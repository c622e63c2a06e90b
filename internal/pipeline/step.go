// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"time"
)

// Step is one stage of the pipeline. It reads the current state and returns
// the fields it changes as a Patch; it must not mutate the state in place.
//
// A Step absorbs expected failures (provider errors, malformed responses,
// timeouts) into its patch: either a degraded fallback value, or
// publishStatus=failed with a publishError. A non-nil error return is
// reserved for programming defects and aborts the run.
type Step interface {
	Name() string
	Run(ctx context.Context, st *PipelineState) (Patch, error)
}

// StepFunc adapts a plain function to the Step interface.
type StepFunc struct {
	name string
	fn   func(ctx context.Context, st *PipelineState) (Patch, error)
}

// NewStepFunc wraps fn as a named Step.
func NewStepFunc(name string, fn func(ctx context.Context, st *PipelineState) (Patch, error)) *StepFunc {
	return &StepFunc{name: name, fn: fn}
}

// Name implements Step.
func (s *StepFunc) Name() string { return s.name }

// Run implements Step.
func (s *StepFunc) Run(ctx context.Context, st *PipelineState) (Patch, error) {
	return s.fn(ctx, st)
}

// StepRecord is an immutable log entry for one step execution.
type StepRecord struct {
	StepName string
	Status   string // "ok", "aborted", "cancelled"
	Error    string
	Duration time.Duration
	Time     time.Time
}
