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
)

// SubPipeline runs a nested Graph as if it were a single Step. The nested
// graph shares the PipelineState shape; it executes over a clone and only
// the declared output fields (plus any cost delta) are projected back as
// this step's patch, so the outer merge policies stay in charge.
type SubPipeline struct {
	name    string
	exec    *Executor
	outputs []string
}

// NewSubPipeline wraps g as a Step named name. outputs lists the state
// fields the nested graph is allowed to export.
func NewSubPipeline(name string, g *Graph, outputs []string, opts ...ExecutorOption) *SubPipeline {
	return &SubPipeline{
		name:    name,
		exec:    NewExecutor(g, opts...),
		outputs: outputs,
	}
}

// Name implements Step.
func (s *SubPipeline) Name() string { return s.name }

// Run implements Step. A contract violation inside the nested graph
// propagates; anything else the nested steps already absorbed into state.
func (s *SubPipeline) Run(ctx context.Context, st *PipelineState) (Patch, error) {
	clone := st.Clone()
	if _, err := s.exec.Run(ctx, clone); err != nil {
		return nil, err
	}

	patch := Patch{}
	for _, f := range s.outputs {
		v, err := FieldValue(clone, f)
		if err != nil {
			return nil, err
		}
		patch[f] = v
	}

	// Costs reported inside the nested run are exported as a delta so the
	// outer additive merge does not double-count them.
	delta := make(map[string]float64)
	for k, v := range clone.APICosts {
		if d := v - st.APICosts[k]; d != 0 {
			delta[k] = d
		}
	}
	if len(delta) > 0 {
		patch[FieldAPICosts] = delta
	}
	return patch, nil
}
