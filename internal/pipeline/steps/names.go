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

// Package steps holds the pipeline step bodies. Each step wraps its
// external calls so that every observable failure becomes a patch, never an
// error across the executor boundary.
package steps

// Step names, shared with the graph topology.
const (
	NameFetch         = "fetch"
	NameCurate        = "curate"
	NameQualityGate   = "qualityGate"
	NameGenerateImage = "generateImage"
	NameCaption       = "caption"
	NamePrepare       = "prepareCaption"
	NamePublish       = "publish"
	NamePersist       = "persist"

	// Caption sub-pipeline step names.
	NameDraftCaption    = "draftCaption"
	NameCondenseCaption = "condenseCaption"
	NameScheduleCaption = "scheduleCaption"
)

// Cost telemetry keys in apiCosts.
const (
	CostSearch = "search"
	CostLLM    = "llm"
	CostImage  = "image"
)
