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

	"github.com/Knetic/govaluate"
)

// routeParams is the scalar view of state visible to route conditions.
// Conditions see only routing-relevant fields, never opaque payloads.
func routeParams(st *PipelineState) map[string]any {
	return map[string]any{
		"isContentSufficient": st.IsContentSufficient,
		"retryCount":          st.RetryCount,
		"requiresApproval":    st.RequiresApproval,
		"publishStatus":       string(st.PublishStatus),
		"platform":            st.Platform,
		"hasPost":             st.Post != "",
		"postLength":          len(st.Post),
		"condenseCount":       st.CondenseCount,
	}
}

// Condition is a boolean expression over the route parameters, compiled once
// at graph construction. Example: "isContentSufficient || retryCount >= 2".
type Condition struct {
	raw  string
	expr *govaluate.EvaluableExpression
}

// NewCondition compiles an expression. Compilation failure is a graph
// configuration defect.
func NewCondition(raw string) (*Condition, error) {
	expr, err := govaluate.NewEvaluableExpression(raw)
	if err != nil {
		return nil, &ContractError{Op: "graph", Detail: fmt.Sprintf("condition %q: %v", raw, err)}
	}
	return &Condition{raw: raw, expr: expr}, nil
}

// Eval evaluates the condition against the state.
func (c *Condition) Eval(st *PipelineState) (bool, error) {
	v, err := c.expr.Evaluate(routeParams(st))
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", c.raw, err)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, want bool", c.raw, v)
	}
	return b, nil
}

// String returns the source expression.
func (c *Condition) String() string { return c.raw }

// NewConditionRouter builds a two-way Router: ifTrue when the expression
// holds, ifFalse otherwise.
func NewConditionRouter(name, expr, ifTrue, ifFalse string) (*Router, error) {
	cond, err := NewCondition(expr)
	if err != nil {
		return nil, err
	}
	return &Router{
		Name:    name,
		Targets: []string{ifTrue, ifFalse},
		Pick: func(st *PipelineState) (string, error) {
			ok, err := cond.Eval(st)
			if err != nil {
				return "", err
			}
			if ok {
				return ifTrue, nil
			}
			return ifFalse, nil
		},
	}, nil
}
