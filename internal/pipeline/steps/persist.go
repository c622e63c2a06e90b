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

	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/store"
)

// PersistStep records the run outcome. It is a sink: safe to call with
// partial state, never changes publishStatus, and a storage failure is
// logged rather than allowed to erase the run's result.
type PersistStep struct {
	Store store.Store
}

// Name implements pipeline.Step.
func (s *PersistStep) Name() string { return NamePersist }

// Run implements pipeline.Step.
func (s *PersistStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	runStatus := store.RunCompleted
	if st.PublishStatus == pipeline.StatusFailed {
		runStatus = store.RunFailed
	}
	outcome := &store.Outcome{
		WorkflowID:    st.WorkflowID,
		RunStatus:     runStatus,
		PublishStatus: string(st.PublishStatus),
		Content:       st.Post,
		ImageURL:      st.ImageURL,
		PublishedURL:  st.PublishedURL,
		Error:         st.PublishError,
		APICosts:      st.APICosts,
	}
	if s.Store == nil {
		log.Warn("persist: no store configured, outcome for %s not recorded", st.WorkflowID)
		return pipeline.Patch{}, nil
	}
	if err := s.Store.RecordOutcome(ctx, outcome); err != nil {
		log.Error("persist: failed to record outcome for %s: %v", st.WorkflowID, err)
	}
	return pipeline.Patch{}, nil
}
