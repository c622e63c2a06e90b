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
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/postpipe/imagegen"
	"github.com/cloudwego/postpipe/internal/pipeline"
)

// fakeImage is the imagegen.Client double.
type fakeImage struct {
	res    *imagegen.Result
	err    error
	prompt string
}

func (f *fakeImage) Generate(ctx context.Context, prompt string) (*imagegen.Result, error) {
	f.prompt = prompt
	return f.res, f.err
}

func TestGenerateImageSuccess(t *testing.T) {
	client := &fakeImage{res: &imagegen.Result{URL: "https://img/1.png", Cost: 0.04}}
	step := &GenerateImageStep{Client: client}

	st := newState()
	st.StylePrompt = "watercolor"
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldImageURL] != "https://img/1.png" {
		t.Errorf("imageUrl = %v", patch[pipeline.FieldImageURL])
	}
	if patch[pipeline.FieldAPICosts].(map[string]float64)[CostImage] != 0.04 {
		t.Errorf("costs = %v", patch[pipeline.FieldAPICosts])
	}
	for _, want := range []string{st.SearchQuery, "watercolor", st.Platform} {
		if !strings.Contains(client.prompt, want) {
			t.Errorf("prompt %q missing %q", client.prompt, want)
		}
	}
}

func TestGenerateImageHardFailure(t *testing.T) {
	client := &fakeImage{err: errors.New("content policy rejection")}
	step := &GenerateImageStep{Client: client}

	st := newState()
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldPublishStatus] != pipeline.StatusFailed {
		t.Error("image failure must hard-fail the run")
	}
	if !strings.Contains(patch[pipeline.FieldPublishError].(string), "content policy rejection") {
		t.Errorf("publishError = %v", patch[pipeline.FieldPublishError])
	}
}

func TestGenerateImageUnconfiguredHardFails(t *testing.T) {
	step := &GenerateImageStep{}
	st := newState()
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldPublishStatus] != pipeline.StatusFailed {
		t.Error("missing image provider must hard-fail, not publish without an image")
	}
}

func TestGenerateImageSkipsFailedRun(t *testing.T) {
	client := &fakeImage{res: &imagegen.Result{URL: "https://img/1.png"}}
	step := &GenerateImageStep{Client: client}

	st := newState()
	st.PublishStatus = pipeline.StatusFailed
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if len(patch) != 0 {
		t.Errorf("failed run must pass through untouched, patch = %v", patch)
	}
}
