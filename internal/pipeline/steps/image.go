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

	"github.com/cloudwego/postpipe/imagegen"
	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
)

// GenerateImageStep requests the post image. Failure here is a hard
// failure: a placeholder image would only be rejected later by the
// publishing service, which is a worse failure further downstream.
type GenerateImageStep struct {
	Client imagegen.Client
}

// Name implements pipeline.Step.
func (s *GenerateImageStep) Name() string { return NameGenerateImage }

// Run implements pipeline.Step.
func (s *GenerateImageStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	if st.Failed() {
		return pipeline.Patch{}, nil
	}
	if s.Client == nil {
		return hardFail("image generation is not configured"), nil
	}

	res, err := s.Client.Generate(ctx, imagePrompt(st))
	if err != nil {
		log.Error("generateImage: %v", err)
		return hardFail(fmt.Sprintf("image generation failed: %v", err)), nil
	}

	patch := pipeline.Patch{
		pipeline.FieldImageURL: res.URL,
	}
	if res.Cost > 0 {
		patch[pipeline.FieldAPICosts] = map[string]float64{CostImage: res.Cost}
	}
	return patch, nil
}

func imagePrompt(st *pipeline.PipelineState) string {
	parts := []string{fmt.Sprintf("An eye-catching social media image about %s", st.SearchQuery)}
	if st.StylePrompt != "" {
		parts = append(parts, st.StylePrompt)
	}
	parts = append(parts, fmt.Sprintf("optimized for %s", st.Platform))
	return strings.Join(parts, ", ")
}

// hardFail marks the run failed; downstream steps detect it and no-op.
func hardFail(reason string) pipeline.Patch {
	return pipeline.Patch{
		pipeline.FieldPublishStatus: pipeline.StatusFailed,
		pipeline.FieldPublishError:  reason,
	}
}
