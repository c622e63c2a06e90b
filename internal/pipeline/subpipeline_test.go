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
	"math"
	"testing"
)

func captionLikeGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewBuilder().
		AddStep(&fakeStep{name: "draft", run: func(ctx context.Context, st *PipelineState) (Patch, error) {
			return Patch{
				FieldPost:     "drafted for " + st.SearchQuery,
				FieldFeedback: "internal note",
				FieldAPICosts: map[string]float64{"llm": 0.5},
			}, nil
		}}).
		AddStep(&fakeStep{name: "schedule", run: func(ctx context.Context, st *PipelineState) (Patch, error) {
			return Patch{FieldScheduleDate: "2026-08-28T10:00:00Z"}, nil
		}}).
		SetStart("draft").
		AddEdge("draft", "schedule").
		AddEdge("schedule", End).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSubPipelineProjectsDeclaredOutputs(t *testing.T) {
	sub := NewSubPipeline("caption", captionLikeGraph(t), []string{FieldPost, FieldScheduleDate})

	st := NewPipelineState("jazz night", "instagram", "wf-1", false)
	st.APICosts["llm"] = 1 // pre-existing outer cost
	patch, err := sub.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}

	if patch[FieldPost] != "drafted for jazz night" {
		t.Errorf("post = %v", patch[FieldPost])
	}
	if patch[FieldScheduleDate] != "2026-08-28T10:00:00Z" {
		t.Errorf("scheduleDate = %v", patch[FieldScheduleDate])
	}
	if _, leaked := patch[FieldFeedback]; leaked {
		t.Error("undeclared field leaked out of the sub-pipeline")
	}

	// The parent merges the patch exactly once; costs must not double-count.
	if err := Merge(st, patch); err != nil {
		t.Fatal(err)
	}
	if math.Abs(st.APICosts["llm"]-1.5) > 1e-9 {
		t.Errorf("apiCosts[llm] = %v, want 1.5", st.APICosts["llm"])
	}
}

func TestSubPipelineDoesNotMutateParentState(t *testing.T) {
	sub := NewSubPipeline("caption", captionLikeGraph(t), []string{FieldPost})

	st := NewPipelineState("jazz night", "instagram", "wf-1", false)
	if _, err := sub.Run(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if st.Post != "" || st.ScheduleDate != "" || len(st.APICosts) != 0 {
		t.Errorf("parent state mutated before merge: post=%q scheduleDate=%q costs=%v",
			st.Post, st.ScheduleDate, st.APICosts)
	}
}

func TestSubPipelinePropagatesContractViolation(t *testing.T) {
	g, err := NewBuilder().
		AddStep(&fakeStep{name: "bad", run: func(ctx context.Context, st *PipelineState) (Patch, error) {
			return Patch{"notAField": 1}, nil
		}}).
		SetStart("bad").
		AddEdge("bad", End).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	sub := NewSubPipeline("caption", g, []string{FieldPost})

	st := NewPipelineState("q", "instagram", "wf-1", false)
	if _, err := sub.Run(context.Background(), st); err == nil {
		t.Fatal("want nested contract violation to propagate")
	}
}
