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

	"github.com/cloudwego/postpipe/discovery"
	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
)

// FetchStep discovers candidate content. Discovery failures degrade to a
// small deterministic placeholder set, never an empty or crashed state, so
// curation always has something to work with. Each call increments
// retryCount; the quality router uses that to bound the fetch loop.
type FetchStep struct {
	Client      discovery.Client // nil means not configured
	CostPerCall float64
}

// Name implements pipeline.Step.
func (s *FetchStep) Name() string { return NameFetch }

// Run implements pipeline.Step.
func (s *FetchStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	patch := pipeline.Patch{
		pipeline.FieldRetryCount: st.RetryCount + 1,
	}

	if s.Client == nil {
		log.Warn("fetch: discovery provider not configured, using placeholder content")
		patch[pipeline.FieldEvents] = placeholderEvents(st.SearchQuery)
		return patch, nil
	}

	results, err := s.Client.Search(ctx, st.SearchQuery, st.Location)
	if err != nil {
		log.Error("fetch: search failed, using placeholder content: %v", err)
		patch[pipeline.FieldEvents] = placeholderEvents(st.SearchQuery)
		return patch, nil
	}

	if s.CostPerCall > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostSearch: s.CostPerCall}
	}
	if len(results) == 0 {
		log.Warn("fetch: search returned no results for %q, using placeholder content", st.SearchQuery)
		patch[pipeline.FieldEvents] = placeholderEvents(st.SearchQuery)
		return patch, nil
	}

	events := make([]pipeline.ContentItem, 0, len(results))
	for _, r := range results {
		events = append(events, pipeline.ContentItem{
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
			Date:    r.Date,
		})
	}
	patch[pipeline.FieldEvents] = events
	return patch, nil
}

// placeholderEvents is the deterministic fallback content set.
func placeholderEvents(query string) []pipeline.ContentItem {
	return []pipeline.ContentItem{
		{
			Title:   fmt.Sprintf("Trends to watch: %s", query),
			Link:    "https://example.com/trends",
			Snippet: fmt.Sprintf("A roundup of what people are talking about around %s right now.", query),
		},
		{
			Title:   fmt.Sprintf("Why %s matters this week", query),
			Link:    "https://example.com/why-it-matters",
			Snippet: fmt.Sprintf("Background and context on %s for a general audience.", query),
		},
	}
}
