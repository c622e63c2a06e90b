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

	"github.com/cloudwego/postpipe/internal/pipeline"
)

const longReport = `Curated content for "food trucks berlin" (instagram):
- Event A: a street food weekend with twenty trucks at the old airfield
- Event B: a new night market opening with live music and local vendors`

func TestQualityShortReportInsufficientWithoutLLM(t *testing.T) {
	gen := &fakeGen{out: `{"sufficient": true}`}
	step := &QualityGateStep{Gen: gen}

	st := newState()
	st.Report = "too short"
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldIsContentSufficient] != false {
		t.Error("short report must be insufficient")
	}
	if gen.calls != 0 {
		t.Error("short report must not consume an LLM call")
	}
}

func TestQualityParsesVerdict(t *testing.T) {
	gen := &fakeGen{out: `{"sufficient": false, "feedback": "items are off topic"}`}
	step := &QualityGateStep{Gen: gen, CostPerCall: 0.001}

	st := newState()
	st.Report = longReport
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldIsContentSufficient] != false {
		t.Error("verdict not honored")
	}
	if !strings.Contains(patch[pipeline.FieldFeedback].(string), "off topic") {
		t.Errorf("feedback = %v", patch[pipeline.FieldFeedback])
	}
	if patch[pipeline.FieldAPICosts].(map[string]float64)[CostLLM] != 0.001 {
		t.Errorf("costs = %v", patch[pipeline.FieldAPICosts])
	}
}

func TestQualityWithoutLLMAccepts(t *testing.T) {
	step := &QualityGateStep{}
	st := newState()
	st.Report = longReport
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if patch[pipeline.FieldIsContentSufficient] != true {
		t.Error("unconfigured gate must accept rather than loop forever")
	}
}

func TestQualityDefaultOnUnparsableVerdict(t *testing.T) {
	for _, deflt := range []bool{true, false} {
		gen := &fakeGen{out: "the report looks fine to me"}
		step := &QualityGateStep{Gen: gen, DefaultSufficient: deflt}

		st := newState()
		st.Report = longReport
		patch, err := step.Run(context.Background(), st)
		if err != nil {
			t.Fatal(err)
		}
		if patch[pipeline.FieldIsContentSufficient] != deflt {
			t.Errorf("default %v not applied on parse failure", deflt)
		}
	}
}

func TestQualityDefaultOnLLMError(t *testing.T) {
	gen := &fakeGen{err: errors.New("model unavailable")}
	step := &QualityGateStep{Gen: gen, DefaultSufficient: true, CostPerCall: 0.001}

	st := newState()
	st.Report = longReport
	patch, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatal(err, "quality gate must degrade, not fail the run")
	}
	if patch[pipeline.FieldIsContentSufficient] != true {
		t.Error("default verdict not applied on provider failure")
	}
	if _, billed := patch[pipeline.FieldAPICosts]; billed {
		t.Error("failed call should not be billed")
	}
}
