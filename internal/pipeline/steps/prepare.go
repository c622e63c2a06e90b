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

	"github.com/cloudwego/postpipe/internal/pipeline"
)

// minUsablePost is the shortest caption considered usable as-is.
const minUsablePost = 20

// PrepareCaptionStep guarantees a publishable caption: a usable post from
// the caption sub-pipeline passes through unchanged, anything else is
// synthesized from the report plus derived hashtags, then truncated to the
// platform limit. Pure text work, no external calls.
type PrepareCaptionStep struct{}

// Name implements pipeline.Step.
func (s *PrepareCaptionStep) Name() string { return NamePrepare }

// Run implements pipeline.Step.
func (s *PrepareCaptionStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	if st.Failed() {
		return pipeline.Patch{}, nil
	}
	limit := CaptionLimit(st.Platform)
	post := st.Post
	if len(strings.TrimSpace(post)) < minUsablePost {
		post = synthesizeCaption(st)
	}
	return pipeline.Patch{
		pipeline.FieldPost: truncateCaption(post, limit),
	}, nil
}

// synthesizeCaption builds a caption from the first few non-empty report
// lines plus hashtags derived from topic, location and platform.
func synthesizeCaption(st *pipeline.PipelineState) string {
	var lines []string
	for _, line := range strings.Split(st.Report, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 3 {
			break
		}
	}
	if len(lines) == 0 {
		lines = []string{fmt.Sprintf("Here's what's happening around %s.", st.SearchQuery)}
	}
	return strings.Join(lines, "\n") + "\n\n" + strings.Join(deriveHashtags(st), " ")
}

// deriveHashtags produces hashtags from query words, location and platform.
func deriveHashtags(st *pipeline.PipelineState) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(raw string) {
		tag := hashtagify(raw)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, w := range strings.Fields(st.SearchQuery) {
		add(w)
		if len(tags) == 3 {
			break
		}
	}
	add(st.Location)
	tags = append(tags, platformTag(st.Platform))
	return tags
}

func hashtagify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() < 2 {
		return ""
	}
	return "#" + b.String()
}

// truncateCaption cuts at a word boundary near the limit (counted in
// characters, the way platforms count) and adds an ellipsis when it cut.
func truncateCaption(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
