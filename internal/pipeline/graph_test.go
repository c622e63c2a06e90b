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
	"strings"
	"testing"
)

// fakeStep is the test double used across the engine tests.
type fakeStep struct {
	name string
	run  func(ctx context.Context, st *PipelineState) (Patch, error)
}

func (f *fakeStep) Name() string { return f.name }

func (f *fakeStep) Run(ctx context.Context, st *PipelineState) (Patch, error) {
	if f.run == nil {
		return Patch{}, nil
	}
	return f.run(ctx, st)
}

func noop(name string) *fakeStep { return &fakeStep{name: name} }

func TestBuildLinearGraph(t *testing.T) {
	g, err := NewBuilder().
		AddStep(noop("a")).
		AddStep(noop("b")).
		SetStart("a").
		AddEdge("a", "b").
		AddEdge("b", End).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if g.Start() != "a" || g.StepCount() != 2 {
		t.Errorf("start=%q stepCount=%d", g.Start(), g.StepCount())
	}
}

func TestBuildValidation(t *testing.T) {
	cases := []struct {
		name    string
		builder *Builder
		detail  string
	}{
		{
			name:    "no start",
			builder: NewBuilder().AddStep(noop("a")).AddEdge("a", End),
			detail:  "no start step",
		},
		{
			name:    "unknown start",
			builder: NewBuilder().AddStep(noop("a")).AddEdge("a", End).SetStart("zzz"),
			detail:  `start step "zzz"`,
		},
		{
			name: "edge to unknown step",
			builder: NewBuilder().AddStep(noop("a")).
				SetStart("a").AddEdge("a", "ghost"),
			detail: `unknown step "ghost"`,
		},
		{
			name: "step without outgoing edge",
			builder: NewBuilder().AddStep(noop("a")).AddStep(noop("b")).
				SetStart("a").AddEdge("a", "b"),
			detail: `step "b" has no outgoing`,
		},
		{
			name: "edge and router on same step",
			builder: NewBuilder().AddStep(noop("a")).AddStep(noop("b")).
				SetStart("a").
				AddEdge("a", "b").
				AddRouter("a", &Router{Name: "r", Targets: []string{End}}).
				AddEdge("b", End),
			detail: "both an edge and a router",
		},
		{
			name: "router with undeclared targets",
			builder: NewBuilder().AddStep(noop("a")).
				SetStart("a").
				AddRouter("a", &Router{Name: "r"}),
			detail: "declares no targets",
		},
		{
			name: "router target unknown",
			builder: NewBuilder().AddStep(noop("a")).
				SetStart("a").
				AddRouter("a", &Router{Name: "r", Targets: []string{"ghost"}}),
			detail: `unknown step "ghost"`,
		},
		{
			name: "unknown cancel target",
			builder: NewBuilder().AddStep(noop("a")).
				SetStart("a").AddEdge("a", End).SetCancelTarget("ghost"),
			detail: `cancel target "ghost"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			if !IsContractError(err) {
				t.Fatalf("err = %v, want ContractError", err)
			}
			if !strings.Contains(err.Error(), tc.detail) {
				t.Errorf("err = %v, want detail containing %q", err, tc.detail)
			}
		})
	}
}

func TestBuildRejectsDuplicateStep(t *testing.T) {
	_, err := NewBuilder().
		AddStep(noop("a")).
		AddStep(noop("a")).
		SetStart("a").
		AddEdge("a", End).
		Build()
	if !IsContractError(err) {
		t.Fatalf("err = %v, want ContractError", err)
	}
}

func TestRouterPickValidatedAgainstTargets(t *testing.T) {
	g, err := NewBuilder().
		AddStep(noop("a")).
		AddStep(noop("b")).
		SetStart("a").
		AddRouter("a", &Router{
			Name:    "rogue",
			Targets: []string{"b"},
			Pick:    func(st *PipelineState) (string, error) { return "ghost", nil },
		}).
		AddEdge("b", End).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	st := NewPipelineState("q", "instagram", "wf-1", false)
	_, err = g.next("a", st)
	if !IsContractError(err) {
		t.Fatalf("err = %v, want ContractError", err)
	}
	if !strings.Contains(err.Error(), "undeclared target") {
		t.Errorf("err = %v", err)
	}
}
