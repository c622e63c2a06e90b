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
	"fmt"
	"sort"
)

// End is the terminal sentinel. An edge or router targeting End finishes
// the run.
const End = "__end__"

// Router is a conditional edge: a pure state-inspection function that picks
// the next step from a declared target set. Picking a target outside the set
// is a contract violation.
type Router struct {
	Name    string
	Targets []string
	Pick    func(st *PipelineState) (string, error)
}

// Graph is an immutable registry of steps and edges with one designated
// start step. It is process-wide static configuration; per-run data lives
// only in PipelineState.
type Graph struct {
	start        string
	cancelTarget string
	steps        map[string]Step
	edges        map[string]string
	routers      map[string]*Router
}

// Start returns the name of the start step.
func (g *Graph) Start() string { return g.start }

// CancelTarget returns the step a cancelled run jumps to, or "" if none.
func (g *Graph) CancelTarget() string { return g.cancelTarget }

// StepCount returns the number of registered steps.
func (g *Graph) StepCount() int { return len(g.steps) }

// step returns the named step, or a ContractError if the graph has no such
// step. The builder validates all static references, so this only fires on
// a router bug.
func (g *Graph) step(name string) (Step, error) {
	s, ok := g.steps[name]
	if !ok {
		return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("unknown step %q", name)}
	}
	return s, nil
}

// next resolves the step after cur: a static edge, or the router's pick
// validated against its declared targets.
func (g *Graph) next(cur string, st *PipelineState) (string, error) {
	if to, ok := g.edges[cur]; ok {
		return to, nil
	}
	r, ok := g.routers[cur]
	if !ok {
		return "", &ContractError{Op: "graph", Detail: fmt.Sprintf("step %q has no outgoing edge", cur)}
	}
	target, err := r.Pick(st)
	if err != nil {
		return "", &ContractError{Op: "route", Detail: fmt.Sprintf("router %q: %v", r.Name, err)}
	}
	for _, t := range r.Targets {
		if t == target {
			return target, nil
		}
	}
	return "", &ContractError{Op: "route", Detail: fmt.Sprintf("router %q picked undeclared target %q", r.Name, target)}
}

// Builder assembles a Graph. Build validates the topology and returns an
// immutable Graph; the builder must not be reused afterwards.
type Builder struct {
	start        string
	cancelTarget string
	steps        map[string]Step
	edges        map[string]string
	routers      map[string]*Router
	err          error
}

// NewBuilder returns an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		steps:   make(map[string]Step),
		edges:   make(map[string]string),
		routers: make(map[string]*Router),
	}
}

// AddStep registers a step under its own name.
func (b *Builder) AddStep(s Step) *Builder {
	name := s.Name()
	if _, dup := b.steps[name]; dup {
		b.fail("duplicate step %q", name)
		return b
	}
	b.steps[name] = s
	return b
}

// AddEdge links from unconditionally to to.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, dup := b.edges[from]; dup {
		b.fail("step %q already has an edge", from)
		return b
	}
	b.edges[from] = to
	return b
}

// AddRouter attaches a conditional edge after from.
func (b *Builder) AddRouter(from string, r *Router) *Builder {
	if _, dup := b.routers[from]; dup {
		b.fail("step %q already has a router", from)
		return b
	}
	b.routers[from] = r
	return b
}

// SetStart designates the entry step.
func (b *Builder) SetStart(name string) *Builder {
	b.start = name
	return b
}

// SetCancelTarget designates the step a cancelled run jumps to (normally the
// persistence sink, so cancelled runs still record an outcome).
func (b *Builder) SetCancelTarget(name string) *Builder {
	b.cancelTarget = name
	return b
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = &ContractError{Op: "graph", Detail: fmt.Sprintf(format, args...)}
	}
}

// Build validates the topology and freezes it. Every edge endpoint and
// router target must be a registered step or End, every step needs exactly
// one outgoing edge or router, and the start step must exist.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.start == "" {
		return nil, &ContractError{Op: "graph", Detail: "no start step designated"}
	}
	if _, ok := b.steps[b.start]; !ok {
		return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("start step %q not registered", b.start)}
	}
	if b.cancelTarget != "" {
		if _, ok := b.steps[b.cancelTarget]; !ok {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("cancel target %q not registered", b.cancelTarget)}
		}
	}
	for from, to := range b.edges {
		if _, ok := b.steps[from]; !ok {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("edge from unknown step %q", from)}
		}
		if err := b.checkTarget(to); err != nil {
			return nil, err
		}
		if _, both := b.routers[from]; both {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("step %q has both an edge and a router", from)}
		}
	}
	for from, r := range b.routers {
		if _, ok := b.steps[from]; !ok {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("router after unknown step %q", from)}
		}
		if len(r.Targets) == 0 {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("router %q declares no targets", r.Name)}
		}
		for _, t := range r.Targets {
			if err := b.checkTarget(t); err != nil {
				return nil, err
			}
		}
	}
	// Every step must lead somewhere, or the executor would stall.
	names := make([]string, 0, len(b.steps))
	for name := range b.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, hasEdge := b.edges[name]
		_, hasRouter := b.routers[name]
		if !hasEdge && !hasRouter {
			return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("step %q has no outgoing edge or router", name)}
		}
	}
	g := &Graph{
		start:        b.start,
		cancelTarget: b.cancelTarget,
		steps:        b.steps,
		edges:        b.edges,
		routers:      b.routers,
	}
	b.steps, b.edges, b.routers = nil, nil, nil
	return g, nil
}

func (b *Builder) checkTarget(to string) error {
	if to == End {
		return nil
	}
	if _, ok := b.steps[to]; !ok {
		return &ContractError{Op: "graph", Detail: fmt.Sprintf("edge targets unknown step %q", to)}
	}
	return nil
}
