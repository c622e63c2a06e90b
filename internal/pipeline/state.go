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

// PublishStatus is the terminal outcome of a run. It is always one of the
// four values below by the time the run reaches persistence.
type PublishStatus string

const (
	StatusPending PublishStatus = "pending"
	StatusSuccess PublishStatus = "success"
	StatusFailed  PublishStatus = "failed"
	StatusSkipped PublishStatus = "skipped"
)

// ContentItem is one raw item returned by content discovery.
type ContentItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// PipelineState is the single mutable context threaded through a run. It is
// created at run start and discarded after persistence; runs never share one.
//
// Steps never write to it directly. They return a Patch and the merge engine
// (merge.go) applies it under each field's merge policy.
type PipelineState struct {
	// Inputs, set once at run start.
	SearchQuery      string
	Location         string
	StylePrompt      string
	Platform         string
	UserID           string
	WorkflowID       string
	RequiresApproval bool

	// Credentials for the publishing service. Opaque to the engine; only the
	// publisher that consumes it validates its shape.
	Credentials any

	// Discovery and curation outputs.
	Events          []ContentItem
	SelectedContent []ContentItem
	Report          string
	Links           []string
	RelevantLinks   []string
	PageContents    []string

	// Quality gate outputs.
	IsContentSufficient bool
	Feedback            string
	RetryCount          int

	// Per-service cost telemetry. The merge policy owns additivity: steps
	// report their own call costs without knowing prior contributions.
	APICosts map[string]float64

	// Image generation outputs.
	ImageURL string
	Image    any

	// Caption sub-pipeline outputs.
	Post          string
	ComplexPost   any
	ScheduleDate  string
	UserResponse  any
	Next          string
	CondenseCount int
	ImageOptions  any

	// Publication outcome.
	PublishStatus PublishStatus
	PublishError  string
	PublishedURL  string
}

// NewPipelineState returns an initial state for one run. searchQuery,
// platform and workflowID are the minimum a caller must supply.
func NewPipelineState(searchQuery, platform, workflowID string, requiresApproval bool) *PipelineState {
	return &PipelineState{
		SearchQuery:      searchQuery,
		Platform:         platform,
		WorkflowID:       workflowID,
		RequiresApproval: requiresApproval,
		APICosts:         make(map[string]float64),
		PublishStatus:    StatusPending,
	}
}

// Clone returns a copy of the state with its own maps and slices. Mutating
// the clone never affects the original.
func (s *PipelineState) Clone() *PipelineState {
	if s == nil {
		return nil
	}
	out := *s
	out.Events = append([]ContentItem(nil), s.Events...)
	out.SelectedContent = append([]ContentItem(nil), s.SelectedContent...)
	out.Links = append([]string(nil), s.Links...)
	out.RelevantLinks = append([]string(nil), s.RelevantLinks...)
	out.PageContents = append([]string(nil), s.PageContents...)
	if s.APICosts != nil {
		out.APICosts = make(map[string]float64, len(s.APICosts))
		for k, v := range s.APICosts {
			out.APICosts[k] = v
		}
	}
	return &out
}

// Failed reports whether an upstream step already marked the run as failed.
// Steps downstream of a hard failure must no-op instead of doing their work.
func (s *PipelineState) Failed() bool {
	return s.PublishStatus == StatusFailed
}
