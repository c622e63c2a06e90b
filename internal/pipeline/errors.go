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

// ContractError marks a programming defect in the step/state/graph contract:
// a patch with an unknown field, a router picking an undeclared target, a
// reference to a missing step. Unlike provider failures, which steps absorb
// into the state, a ContractError aborts the run loudly.
type ContractError struct {
	Op     string // "merge", "route", "graph", "executor"
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("pipeline contract violation (%s): %s", e.Op, e.Detail)
}

// IsContractError reports whether err is a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
