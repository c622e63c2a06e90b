/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package llm

import "testing"

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced array", "```json\n[1,2,3]\n```", `[1,2,3]`},
		{"surrounding whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"single line fence", "```{}", "{}"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSON(tc.in); got != tc.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
