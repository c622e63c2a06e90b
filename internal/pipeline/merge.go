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

import (
	"errors"
	"fmt"
)

// Patch is the partial state update returned by a Step. Keys are field names
// from the registry below; an unknown key is a contract violation and aborts
// the run rather than silently dropping data.
type Patch map[string]any

// Field names usable as Patch keys.
const (
	FieldSearchQuery      = "searchQuery"
	FieldLocation         = "location"
	FieldStylePrompt      = "stylePrompt"
	FieldPlatform         = "platform"
	FieldUserID           = "userId"
	FieldWorkflowID       = "workflowId"
	FieldRequiresApproval = "requiresApproval"
	FieldCredentials      = "credentials"

	FieldEvents          = "events"
	FieldSelectedContent = "selectedContent"
	FieldReport          = "report"
	FieldLinks           = "links"
	FieldRelevantLinks   = "relevantLinks"
	FieldPageContents    = "pageContents"

	FieldIsContentSufficient = "isContentSufficient"
	FieldFeedback            = "feedback"
	FieldRetryCount          = "retryCount"

	FieldAPICosts = "apiCosts"

	FieldImageURL = "imageUrl"
	FieldImage    = "image"

	FieldPost          = "post"
	FieldComplexPost   = "complexPost"
	FieldScheduleDate  = "scheduleDate"
	FieldUserResponse  = "userResponse"
	FieldNext          = "next"
	FieldCondenseCount = "condenseCount"
	FieldImageOptions  = "imageOptions"

	FieldPublishStatus = "publishStatus"
	FieldPublishError  = "publishError"
	FieldPublishedURL  = "publishedUrl"
)

// fieldSpec binds a field name to a getter and a merge policy. The apply
// function is the policy: overwrite for scalars, append for pageContents,
// additive shallow-merge for apiCosts.
type fieldSpec struct {
	get   func(s *PipelineState) any
	apply func(s *PipelineState, v any) error
}

var fields = map[string]fieldSpec{
	FieldSearchQuery: {
		get:   func(s *PipelineState) any { return s.SearchQuery },
		apply: setString(func(s *PipelineState) *string { return &s.SearchQuery }),
	},
	FieldLocation: {
		get:   func(s *PipelineState) any { return s.Location },
		apply: setString(func(s *PipelineState) *string { return &s.Location }),
	},
	FieldStylePrompt: {
		get:   func(s *PipelineState) any { return s.StylePrompt },
		apply: setString(func(s *PipelineState) *string { return &s.StylePrompt }),
	},
	FieldPlatform: {
		get:   func(s *PipelineState) any { return s.Platform },
		apply: setString(func(s *PipelineState) *string { return &s.Platform }),
	},
	FieldUserID: {
		get:   func(s *PipelineState) any { return s.UserID },
		apply: setString(func(s *PipelineState) *string { return &s.UserID }),
	},
	FieldWorkflowID: {
		get:   func(s *PipelineState) any { return s.WorkflowID },
		apply: setString(func(s *PipelineState) *string { return &s.WorkflowID }),
	},
	FieldRequiresApproval: {
		get:   func(s *PipelineState) any { return s.RequiresApproval },
		apply: setBool(func(s *PipelineState) *bool { return &s.RequiresApproval }),
	},
	FieldCredentials: {
		get:   func(s *PipelineState) any { return s.Credentials },
		apply: setAny(func(s *PipelineState) *any { return &s.Credentials }),
	},
	FieldEvents: {
		get:   func(s *PipelineState) any { return s.Events },
		apply: setItems(func(s *PipelineState) *[]ContentItem { return &s.Events }),
	},
	FieldSelectedContent: {
		get:   func(s *PipelineState) any { return s.SelectedContent },
		apply: setItems(func(s *PipelineState) *[]ContentItem { return &s.SelectedContent }),
	},
	FieldReport: {
		get:   func(s *PipelineState) any { return s.Report },
		apply: setString(func(s *PipelineState) *string { return &s.Report }),
	},
	FieldLinks: {
		get:   func(s *PipelineState) any { return s.Links },
		apply: setStrings(func(s *PipelineState) *[]string { return &s.Links }),
	},
	FieldRelevantLinks: {
		get:   func(s *PipelineState) any { return s.RelevantLinks },
		apply: setStrings(func(s *PipelineState) *[]string { return &s.RelevantLinks }),
	},
	FieldPageContents: {
		get: func(s *PipelineState) any { return s.PageContents },
		// Append policy: new entries concatenate onto existing ones.
		apply: func(s *PipelineState, v any) error {
			vs, ok := v.([]string)
			if !ok {
				return typeError("", "[]string", v)
			}
			s.PageContents = append(s.PageContents, vs...)
			return nil
		},
	},
	FieldIsContentSufficient: {
		get:   func(s *PipelineState) any { return s.IsContentSufficient },
		apply: setBool(func(s *PipelineState) *bool { return &s.IsContentSufficient }),
	},
	FieldFeedback: {
		get:   func(s *PipelineState) any { return s.Feedback },
		apply: setString(func(s *PipelineState) *string { return &s.Feedback }),
	},
	FieldRetryCount: {
		get: func(s *PipelineState) any { return s.RetryCount },
		// Overwrite-with-increment: the step computes old+1, the engine
		// stores whatever the step computed.
		apply: func(s *PipelineState, v any) error {
			n, ok := v.(int)
			if !ok {
				return typeError("", "int", v)
			}
			s.RetryCount = n
			return nil
		},
	},
	FieldAPICosts: {
		get: func(s *PipelineState) any { return s.APICosts },
		// Additive shallow-merge: union across keys, same-key contributions
		// add up. Commutative and associative, so steps may report costs in
		// any order.
		apply: func(s *PipelineState, v any) error {
			costs, ok := v.(map[string]float64)
			if !ok {
				return typeError("", "map[string]float64", v)
			}
			if s.APICosts == nil {
				s.APICosts = make(map[string]float64, len(costs))
			}
			for k, c := range costs {
				s.APICosts[k] += c
			}
			return nil
		},
	},
	FieldImageURL: {
		get:   func(s *PipelineState) any { return s.ImageURL },
		apply: setString(func(s *PipelineState) *string { return &s.ImageURL }),
	},
	FieldImage: {
		get:   func(s *PipelineState) any { return s.Image },
		apply: setAny(func(s *PipelineState) *any { return &s.Image }),
	},
	FieldPost: {
		get:   func(s *PipelineState) any { return s.Post },
		apply: setString(func(s *PipelineState) *string { return &s.Post }),
	},
	FieldComplexPost: {
		get:   func(s *PipelineState) any { return s.ComplexPost },
		apply: setAny(func(s *PipelineState) *any { return &s.ComplexPost }),
	},
	FieldScheduleDate: {
		get:   func(s *PipelineState) any { return s.ScheduleDate },
		apply: setString(func(s *PipelineState) *string { return &s.ScheduleDate }),
	},
	FieldUserResponse: {
		get:   func(s *PipelineState) any { return s.UserResponse },
		apply: setAny(func(s *PipelineState) *any { return &s.UserResponse }),
	},
	FieldNext: {
		get:   func(s *PipelineState) any { return s.Next },
		apply: setString(func(s *PipelineState) *string { return &s.Next }),
	},
	FieldCondenseCount: {
		get: func(s *PipelineState) any { return s.CondenseCount },
		apply: func(s *PipelineState, v any) error {
			n, ok := v.(int)
			if !ok {
				return typeError("", "int", v)
			}
			s.CondenseCount = n
			return nil
		},
	},
	FieldImageOptions: {
		get:   func(s *PipelineState) any { return s.ImageOptions },
		apply: setAny(func(s *PipelineState) *any { return &s.ImageOptions }),
	},
	FieldPublishStatus: {
		get: func(s *PipelineState) any { return s.PublishStatus },
		apply: func(s *PipelineState, v any) error {
			st, ok := v.(PublishStatus)
			if !ok {
				return typeError("", "PublishStatus", v)
			}
			switch st {
			case StatusPending, StatusSuccess, StatusFailed, StatusSkipped:
				s.PublishStatus = st
				return nil
			}
			return &ContractError{Op: "merge", Detail: fmt.Sprintf("invalid publishStatus %q", st)}
		},
	},
	FieldPublishError: {
		get:   func(s *PipelineState) any { return s.PublishError },
		apply: setString(func(s *PipelineState) *string { return &s.PublishError }),
	},
	FieldPublishedURL: {
		get:   func(s *PipelineState) any { return s.PublishedURL },
		apply: setString(func(s *PipelineState) *string { return &s.PublishedURL }),
	},
}

// Merge applies a step's patch to the state under each field's merge policy.
// Keys absent from the patch leave their fields untouched. An unknown key or
// a value of the wrong type is a ContractError.
func Merge(s *PipelineState, p Patch) error {
	for k, v := range p {
		spec, ok := fields[k]
		if !ok {
			return &ContractError{Op: "merge", Detail: fmt.Sprintf("patch has unknown field %q", k)}
		}
		if err := spec.apply(s, v); err != nil {
			var ce *ContractError
			if errors.As(err, &ce) {
				return &ContractError{Op: ce.Op, Detail: fmt.Sprintf("field %q: %s", k, ce.Detail)}
			}
			return err
		}
	}
	return nil
}

// FieldValue returns the current value of a named field, or a ContractError
// for an unknown name. Used by sub-pipelines to project their outputs.
func FieldValue(s *PipelineState, name string) (any, error) {
	spec, ok := fields[name]
	if !ok {
		return nil, &ContractError{Op: "field", Detail: fmt.Sprintf("unknown field %q", name)}
	}
	return spec.get(s), nil
}

func setString(f func(*PipelineState) *string) func(*PipelineState, any) error {
	return func(s *PipelineState, v any) error {
		sv, ok := v.(string)
		if !ok {
			return typeError("", "string", v)
		}
		*f(s) = sv
		return nil
	}
}

func setBool(f func(*PipelineState) *bool) func(*PipelineState, any) error {
	return func(s *PipelineState, v any) error {
		b, ok := v.(bool)
		if !ok {
			return typeError("", "bool", v)
		}
		*f(s) = b
		return nil
	}
}

func setAny(f func(*PipelineState) *any) func(*PipelineState, any) error {
	return func(s *PipelineState, v any) error {
		*f(s) = v
		return nil
	}
}

func setStrings(f func(*PipelineState) *[]string) func(*PipelineState, any) error {
	return func(s *PipelineState, v any) error {
		vs, ok := v.([]string)
		if !ok {
			return typeError("", "[]string", v)
		}
		*f(s) = vs
		return nil
	}
}

func setItems(f func(*PipelineState) *[]ContentItem) func(*PipelineState, any) error {
	return func(s *PipelineState, v any) error {
		items, ok := v.([]ContentItem)
		if !ok {
			return typeError("", "[]ContentItem", v)
		}
		*f(s) = items
		return nil
	}
}

func typeError(field, want string, got any) error {
	if field == "" {
		return &ContractError{Op: "merge", Detail: fmt.Sprintf("patch value has type %T, want %s", got, want)}
	}
	return &ContractError{Op: "merge", Detail: fmt.Sprintf("field %q has type %T, want %s", field, got, want)}
}
