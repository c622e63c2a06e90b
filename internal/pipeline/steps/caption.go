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
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/llm"
)

// captionOutputs are the fields the caption sub-pipeline exports back into
// the outer run.
var captionOutputs = []string{
	pipeline.FieldPost,
	pipeline.FieldComplexPost,
	pipeline.FieldScheduleDate,
	pipeline.FieldUserResponse,
	pipeline.FieldNext,
	pipeline.FieldCondenseCount,
	pipeline.FieldImageOptions,
}

// CaptionConfig tunes the caption sub-pipeline.
type CaptionConfig struct {
	MaxCondensePasses int // bounded condense loop, default 2
	CostPerCall       float64
}

// NewCaptionPipeline builds the nested caption graph and wraps it as a
// single Step: draft, condense while over the platform limit (bounded by
// condenseCount), then schedule.
func NewCaptionPipeline(gen llm.Generator, cfg CaptionConfig) (*pipeline.SubPipeline, error) {
	maxPasses := cfg.MaxCondensePasses
	if maxPasses == 0 {
		maxPasses = 2
	}

	condenseRouter := &pipeline.Router{
		Name:    "condenseRouter",
		Targets: []string{NameCondenseCaption, NameScheduleCaption},
		Pick: func(st *pipeline.PipelineState) (string, error) {
			if len(st.Post) > CaptionLimit(st.Platform) && st.CondenseCount < maxPasses {
				return NameCondenseCaption, nil
			}
			return NameScheduleCaption, nil
		},
	}

	g, err := pipeline.NewBuilder().
		AddStep(&DraftCaptionStep{Gen: gen, CostPerCall: cfg.CostPerCall}).
		AddStep(&CondenseCaptionStep{Gen: gen, CostPerCall: cfg.CostPerCall}).
		AddStep(&ScheduleCaptionStep{}).
		SetStart(NameDraftCaption).
		AddRouter(NameDraftCaption, condenseRouter).
		AddRouter(NameCondenseCaption, condenseRouter).
		AddEdge(NameScheduleCaption, pipeline.End).
		Build()
	if err != nil {
		return nil, err
	}
	return pipeline.NewSubPipeline(NameCaption, g, captionOutputs), nil
}

const draftPrompt = `Write a %s caption for a post about %q.
Use the report below for facts. Engaging, concise, 1-3 short paragraphs,
end with 3-5 relevant hashtags. Respond with the caption text only.

%s`

// DraftCaptionStep writes the first caption from the curated report. On any
// provider failure it leaves the post empty; prepareCaption synthesizes a
// fallback later.
type DraftCaptionStep struct {
	Gen         llm.Generator
	CostPerCall float64
}

// Name implements pipeline.Step.
func (s *DraftCaptionStep) Name() string { return NameDraftCaption }

// Run implements pipeline.Step.
func (s *DraftCaptionStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	if st.Failed() || s.Gen == nil {
		return pipeline.Patch{}, nil
	}
	out, err := s.Gen.Call(ctx, fmt.Sprintf(draftPrompt, st.Platform, st.SearchQuery, st.Report))
	if err != nil {
		log.Error("draftCaption: LLM call failed, leaving caption empty: %v", err)
		return pipeline.Patch{}, nil
	}
	patch := pipeline.Patch{
		pipeline.FieldPost: strings.TrimSpace(out),
	}
	if s.CostPerCall > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostLLM: s.CostPerCall}
	}
	return patch, nil
}

const condensePrompt = `The caption below is %d characters; the %s limit is %d.
Rewrite it shorter while keeping the message and hashtags.
Respond with the caption text only.

%s`

// CondenseCaptionStep shortens an over-limit caption. It always increments
// condenseCount so the condense loop stays bounded even when the model
// fails to shorten; a failed call falls back to a hard truncation.
type CondenseCaptionStep struct {
	Gen         llm.Generator
	CostPerCall float64
}

// Name implements pipeline.Step.
func (s *CondenseCaptionStep) Name() string { return NameCondenseCaption }

// Run implements pipeline.Step.
func (s *CondenseCaptionStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	patch := pipeline.Patch{
		pipeline.FieldCondenseCount: st.CondenseCount + 1,
	}
	if st.Failed() || st.Post == "" {
		return patch, nil
	}
	limit := CaptionLimit(st.Platform)
	if s.Gen == nil {
		patch[pipeline.FieldPost] = truncateCaption(st.Post, limit)
		return patch, nil
	}
	out, err := s.Gen.Call(ctx, fmt.Sprintf(condensePrompt, len(st.Post), st.Platform, limit, st.Post))
	if err != nil {
		log.Error("condenseCaption: LLM call failed, truncating instead: %v", err)
		patch[pipeline.FieldPost] = truncateCaption(st.Post, limit)
		return patch, nil
	}
	patch[pipeline.FieldPost] = strings.TrimSpace(out)
	if s.CostPerCall > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostLLM: s.CostPerCall}
	}
	return patch, nil
}

// ScheduleCaptionStep finalizes the sub-pipeline: packages the structured
// post payload and stamps a schedule date when the caller did not set one.
type ScheduleCaptionStep struct {
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Name implements pipeline.Step.
func (s *ScheduleCaptionStep) Name() string { return NameScheduleCaption }

// Run implements pipeline.Step.
func (s *ScheduleCaptionStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	if st.Failed() {
		return pipeline.Patch{}, nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	patch := pipeline.Patch{
		pipeline.FieldComplexPost: map[string]any{
			"caption":  st.Post,
			"imageUrl": st.ImageURL,
			"platform": st.Platform,
		},
	}
	if st.ScheduleDate == "" {
		patch[pipeline.FieldScheduleDate] = now().UTC().Format(time.RFC3339)
	}
	return patch, nil
}
