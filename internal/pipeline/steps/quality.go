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

package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/llm"
)

const qualityPrompt = `You are reviewing a content report for a %s post.
Be lenient: the report is adequate if it has 2-3 relevant items on topic and
could support an engaging post. Respond with ONLY a JSON object:
{"sufficient": true/false, "feedback": "one sentence"}

Report:
%s`

// QualityGateStep judges whether the curated report can carry a post.
// A report under MinReportLength short-circuits to insufficient without an
// LLM call. An unparsable verdict defaults to DefaultSufficient: the
// pipeline is biased toward forward progress over blocking.
type QualityGateStep struct {
	Gen               llm.Generator
	MinReportLength   int  // default 80
	DefaultSufficient bool // verdict on parse failure
	CostPerCall       float64
}

type qualityVerdict struct {
	Sufficient bool   `json:"sufficient"`
	Feedback   string `json:"feedback"`
}

// Name implements pipeline.Step.
func (s *QualityGateStep) Name() string { return NameQualityGate }

// Run implements pipeline.Step.
func (s *QualityGateStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	minLen := s.MinReportLength
	if minLen == 0 {
		minLen = 80
	}
	if len(st.Report) < minLen {
		return pipeline.Patch{
			pipeline.FieldIsContentSufficient: false,
			pipeline.FieldFeedback:            fmt.Sprintf("report too short (%d chars), need more content", len(st.Report)),
		}, nil
	}
	if s.Gen == nil {
		return pipeline.Patch{
			pipeline.FieldIsContentSufficient: true,
			pipeline.FieldFeedback:            "quality gate not configured, accepting report",
		}, nil
	}

	out, err := s.Gen.Call(ctx, fmt.Sprintf(qualityPrompt, st.Platform, st.Report))
	if err != nil {
		log.Error("qualityGate: LLM call failed, defaulting sufficient=%v: %v", s.DefaultSufficient, err)
		return pipeline.Patch{
			pipeline.FieldIsContentSufficient: s.DefaultSufficient,
			pipeline.FieldFeedback:            "quality check unavailable",
		}, nil
	}

	patch := pipeline.Patch{}
	if s.CostPerCall > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostLLM: s.CostPerCall}
	}
	var v qualityVerdict
	if err := json.Unmarshal([]byte(llm.CleanJSON(out)), &v); err != nil {
		log.Warn("qualityGate: unparsable verdict %q, defaulting sufficient=%v", out, s.DefaultSufficient)
		patch[pipeline.FieldIsContentSufficient] = s.DefaultSufficient
		patch[pipeline.FieldFeedback] = "quality verdict unparsable"
		return patch, nil
	}
	patch[pipeline.FieldIsContentSufficient] = v.Sufficient
	patch[pipeline.FieldFeedback] = v.Feedback
	return patch, nil
}
