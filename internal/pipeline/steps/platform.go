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

import "strings"

// captionLimits is the per-platform caption length cap in characters.
var captionLimits = map[string]int{
	"instagram": 2200,
	"twitter":   280,
	"x":         280,
	"linkedin":  3000,
	"facebook":  5000,
}

const defaultCaptionLimit = 2200

// CaptionLimit returns the caption length cap for a platform.
func CaptionLimit(platform string) int {
	if n, ok := captionLimits[strings.ToLower(platform)]; ok {
		return n
	}
	return defaultCaptionLimit
}

// platformTag returns the platform-flavored hashtag seed.
func platformTag(platform string) string {
	switch strings.ToLower(platform) {
	case "instagram":
		return "#instadaily"
	case "twitter", "x":
		return "#trending"
	case "linkedin":
		return "#professional"
	default:
		return "#social"
	}
}
