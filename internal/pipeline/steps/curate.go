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
	"strings"

	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/llm"
)

const curatePrompt = `You are curating content for a social media post about %q on %s.
From the numbered items below, select the 3 to 5 most relevant and engaging.
Respond with ONLY a JSON array of the selected item numbers, e.g. [1,3,4].

%s`

// CurateStep asks the LLM to pick 3-5 items from the fetched events and
// builds the report used downstream. Any provider or parse failure falls
// back to the first three raw events; curation never fails the run.
type CurateStep struct {
	Gen         llm.Generator
	CostPerCall float64
}

// Name implements pipeline.Step.
func (s *CurateStep) Name() string { return NameCurate }

// Run implements pipeline.Step.
func (s *CurateStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	selected, cost := s.selectItems(ctx, st)

	links := make([]string, 0, len(selected))
	pages := make([]string, 0, len(selected))
	var report strings.Builder
	fmt.Fprintf(&report, "Curated content for %q (%s):\n", st.SearchQuery, st.Platform)
	for _, item := range selected {
		fmt.Fprintf(&report, "- %s: %s\n", item.Title, item.Snippet)
		if item.Link != "" {
			links = append(links, item.Link)
		}
		if item.Snippet != "" {
			pages = append(pages, item.Snippet)
		}
	}

	patch := pipeline.Patch{
		pipeline.FieldSelectedContent: selected,
		pipeline.FieldLinks:           links,
		pipeline.FieldRelevantLinks:   links,
		pipeline.FieldPageContents:    pages,
		pipeline.FieldReport:          report.String(),
	}
	if cost > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostLLM: cost}
	}
	return patch, nil
}

// selectItems returns the curated subset and the cost incurred. The
// fallback is deterministic: the first three raw events.
func (s *CurateStep) selectItems(ctx context.Context, st *pipeline.PipelineState) ([]pipeline.ContentItem, float64) {
	fallback := st.Events
	if len(fallback) > 3 {
		fallback = fallback[:3]
	}
	if s.Gen == nil || len(st.Events) == 0 {
		return fallback, 0
	}

	var listing strings.Builder
	for i, e := range st.Events {
		fmt.Fprintf(&listing, "%d. %s - %s\n", i+1, e.Title, e.Snippet)
	}
	out, err := s.Gen.Call(ctx, fmt.Sprintf(curatePrompt, st.SearchQuery, st.Platform, listing.String()))
	if err != nil {
		log.Error("curate: LLM call failed, falling back to first events: %v", err)
		return fallback, 0
	}

	var picks []int
	if err := json.Unmarshal([]byte(llm.CleanJSON(out)), &picks); err != nil {
		log.Warn("curate: unparsable selection %q, falling back to first events", out)
		return fallback, s.CostPerCall
	}
	selected := make([]pipeline.ContentItem, 0, len(picks))
	for _, n := range picks {
		if n >= 1 && n <= len(st.Events) {
			selected = append(selected, st.Events[n-1])
		}
	}
	if len(selected) == 0 {
		return fallback, s.CostPerCall
	}
	if len(selected) > 5 {
		selected = selected[:5]
	}
	return selected, s.CostPerCall
}
