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
	"fmt"
	"time"

	"github.com/cloudwego/postpipe/internal/log"
)

// Observer receives one callback per executed step; used to hook metrics in
// without coupling the engine to a metrics backend.
type Observer func(step, status string, d time.Duration)

// Executor walks a Graph from its start step: execute the current step,
// merge its patch, resolve the next step, repeat until End.
//
// The only cycles a well-formed graph contains are router-guarded and
// bounded through state (retryCount, condenseCount). The step cap is a
// safety net against a future routing bug, not a control-flow mechanism.
type Executor struct {
	graph    *Graph
	maxSteps int
	observer Observer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxSteps overrides the defensive step cap (default 2x step count).
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) { e.maxSteps = n }
}

// WithObserver installs a per-step callback.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// NewExecutor returns an executor for the graph.
func NewExecutor(g *Graph, opts ...ExecutorOption) *Executor {
	e := &Executor{graph: g, maxSteps: 2 * g.StepCount()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunResult is the outcome of one run: the final state plus an execution
// trace in the order steps were visited.
type RunResult struct {
	State   *PipelineState
	History []StepRecord
	Visited []string
}

// Run executes the graph over st. The state is mutated in place (only via
// Merge) and also returned inside the result.
//
// Cancellation is checked between steps: an in-flight step finishes, then
// the run jumps to the graph's cancel target with a skipped status so the
// outcome is still persisted. The returned error is non-nil only for
// contract violations; provider failures surface through the state.
func (e *Executor) Run(ctx context.Context, st *PipelineState) (*RunResult, error) {
	res := &RunResult{State: st}
	cur := e.graph.Start()
	cancelled := false
	stepCtx := ctx

	for steps := 0; cur != End; steps++ {
		if steps >= e.maxSteps {
			return res, &ContractError{
				Op:     "executor",
				Detail: fmt.Sprintf("step cap %d exceeded at %q, routing bug suspected", e.maxSteps, cur),
			}
		}

		if !cancelled && ctx.Err() != nil {
			target := e.graph.CancelTarget()
			if target == "" {
				return res, ctx.Err()
			}
			log.Warn("run %s cancelled before %q, jumping to %q", st.WorkflowID, cur, target)
			if err := Merge(st, Patch{
				FieldPublishStatus: StatusSkipped,
				FieldPublishError:  fmt.Sprintf("run cancelled before step %q", cur),
			}); err != nil {
				return res, err
			}
			cur = target
			cancelled = true
			// The sink still needs to run after cancellation.
			stepCtx = context.WithoutCancel(ctx)
		}

		step, err := e.graph.step(cur)
		if err != nil {
			return res, err
		}

		start := time.Now()
		patch, err := step.Run(stepCtx, st)
		d := time.Since(start)

		rec := StepRecord{StepName: cur, Status: "ok", Duration: d, Time: start}
		if err != nil {
			rec.Status = "aborted"
			rec.Error = err.Error()
			res.History = append(res.History, rec)
			res.Visited = append(res.Visited, cur)
			e.observe(cur, rec.Status, d)
			log.Error("step %s aborted after %s: %v", cur, d, err)
			return res, fmt.Errorf("step %q: %w", cur, err)
		}
		res.History = append(res.History, rec)
		res.Visited = append(res.Visited, cur)
		e.observe(cur, rec.Status, d)
		log.Info("step %s done in %s (%d fields patched)", cur, d, len(patch))

		if err := Merge(st, patch); err != nil {
			return res, fmt.Errorf("step %q: %w", cur, err)
		}

		next, err := e.graph.next(cur, st)
		if err != nil {
			return res, err
		}
		log.Debug("route %s -> %s", cur, next)
		cur = next
	}
	return res, nil
}

func (e *Executor) observe(step, status string, d time.Duration) {
	if e.observer != nil {
		e.observer(step, status, d)
	}
}
