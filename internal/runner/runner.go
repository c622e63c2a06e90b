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

// Package runner assembles the posting pipeline graph and exposes the
// engine's outer boundary: Run(initialState) -> finalState.
package runner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/postpipe/discovery"
	"github.com/cloudwego/postpipe/imagegen"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/internal/pipeline/steps"
	"github.com/cloudwego/postpipe/llm"
	"github.com/cloudwego/postpipe/social"
	"github.com/cloudwego/postpipe/store"
)

// Deps are the external collaborators. Nil entries degrade per each step's
// fallback rules; only the graph topology is mandatory.
type Deps struct {
	Discovery  discovery.Client
	Gen        llm.Generator
	Image      imagegen.Client
	Publishers map[string]social.Publisher
	Store      store.Store
	HTTPClient *http.Client
	Observer   pipeline.Observer
}

// Options are the product-tunable engine knobs.
type Options struct {
	MaxFetchAttempts  int // total fetch attempts, default 2
	MinReportLength   int
	DefaultSufficient bool // quality verdict on parse failure
	MaxCondensePasses int
	SearchCostPerCall float64
	LLMCostPerCall    float64
}

func (o Options) maxFetch() int {
	if o.MaxFetchAttempts <= 0 {
		return 2
	}
	return o.MaxFetchAttempts
}

// BuildGraph wires the full posting topology:
//
//	fetch → curate → qualityGate →(loop|proceed)→ generateImage →
//	caption → prepareCaption →(publish|skip)→ persist → end
//
// The only backward edge is the quality retry to fetch, bounded by
// retryCount. Cancelled runs jump to persist so an outcome is always
// recorded.
func BuildGraph(deps Deps, opts Options) (*pipeline.Graph, error) {
	// Bounded-retry-then-proceed: after the fetch bound the router moves on
	// with whatever content it has, it never aborts.
	qualityRouter, err := pipeline.NewConditionRouter(
		"qualityRouter",
		fmt.Sprintf("isContentSufficient || retryCount >= %d", opts.maxFetch()),
		steps.NameGenerateImage,
		steps.NameFetch,
	)
	if err != nil {
		return nil, err
	}
	publishRouter, err := pipeline.NewConditionRouter(
		"publishRouter",
		"requiresApproval",
		steps.NamePersist,
		steps.NamePublish,
	)
	if err != nil {
		return nil, err
	}
	caption, err := steps.NewCaptionPipeline(deps.Gen, steps.CaptionConfig{
		MaxCondensePasses: opts.MaxCondensePasses,
		CostPerCall:       opts.LLMCostPerCall,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.NewBuilder().
		AddStep(&steps.FetchStep{Client: deps.Discovery, CostPerCall: opts.SearchCostPerCall}).
		AddStep(&steps.CurateStep{Gen: deps.Gen, CostPerCall: opts.LLMCostPerCall}).
		AddStep(&steps.QualityGateStep{
			Gen:               deps.Gen,
			MinReportLength:   opts.MinReportLength,
			DefaultSufficient: opts.DefaultSufficient,
			CostPerCall:       opts.LLMCostPerCall,
		}).
		AddStep(&steps.GenerateImageStep{Client: deps.Image}).
		AddStep(caption).
		AddStep(&steps.PrepareCaptionStep{}).
		AddStep(&steps.PublishStep{Publishers: deps.Publishers, HTTPClient: deps.HTTPClient}).
		AddStep(&steps.PersistStep{Store: deps.Store}).
		SetStart(steps.NameFetch).
		SetCancelTarget(steps.NamePersist).
		AddEdge(steps.NameFetch, steps.NameCurate).
		AddEdge(steps.NameCurate, steps.NameQualityGate).
		AddRouter(steps.NameQualityGate, qualityRouter).
		AddEdge(steps.NameGenerateImage, steps.NameCaption).
		AddEdge(steps.NameCaption, steps.NamePrepare).
		AddRouter(steps.NamePrepare, publishRouter).
		AddEdge(steps.NamePublish, steps.NamePersist).
		AddEdge(steps.NamePersist, pipeline.End).
		Build()
}

// Runner is the engine boundary callers use: one immutable graph, many
// independent concurrent runs.
type Runner struct {
	graph    *pipeline.Graph
	observer pipeline.Observer
}

// New builds the graph once. The graph is static configuration; per-run
// data lives only in the state passed to Run.
func New(deps Deps, opts Options) (*Runner, error) {
	g, err := BuildGraph(deps, opts)
	if err != nil {
		return nil, err
	}
	return &Runner{graph: g, observer: deps.Observer}, nil
}

// Run executes one pipeline run to its terminal state. The returned state's
// publishStatus/publishError/publishedUrl are the caller-visible outcome; a
// non-nil error means a contract violation, not a provider failure.
func (r *Runner) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.PipelineState, error) {
	if st == nil {
		return nil, fmt.Errorf("runner: initial state is nil")
	}
	if st.SearchQuery == "" || st.Platform == "" || st.WorkflowID == "" {
		return st, fmt.Errorf("runner: searchQuery, platform and workflowId are required")
	}
	exec := pipeline.NewExecutor(r.graph, pipeline.WithObserver(r.observer))
	res, err := exec.Run(ctx, st)
	if res != nil && res.State != nil {
		return res.State, err
	}
	return st, err
}
