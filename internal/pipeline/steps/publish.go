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
	"net/http"
	"strings"

	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/social"
)

// PublishStep uploads the post. It never publishes over a known-bad state:
// an upstream hard failure passes through with its original error, a
// missing post or unsupported platform is classified explicitly, and
// provider errors become actionable guidance rather than raw messages.
type PublishStep struct {
	// Publishers by platform name (lowercase).
	Publishers map[string]social.Publisher
	HTTPClient *http.Client // for downloading the generated image
}

// Name implements pipeline.Step.
func (s *PublishStep) Name() string { return NamePublish }

// Run implements pipeline.Step.
func (s *PublishStep) Run(ctx context.Context, st *pipeline.PipelineState) (pipeline.Patch, error) {
	if st.Failed() {
		// Keep the original publishError: the patch omits that field.
		return pipeline.Patch{
			pipeline.FieldPublishStatus: pipeline.StatusFailed,
		}, nil
	}
	if strings.TrimSpace(st.Post) == "" {
		return pipeline.Patch{
			pipeline.FieldPublishStatus: pipeline.StatusFailed,
			pipeline.FieldPublishError:  "no post content to publish",
		}, nil
	}

	platform := strings.ToLower(st.Platform)
	pub, ok := s.Publishers[platform]
	if !ok {
		return pipeline.Patch{
			pipeline.FieldPublishStatus: pipeline.StatusSkipped,
			pipeline.FieldPublishError:  social.Guidance(platform, social.ErrUnsupported),
		}, nil
	}

	image, err := social.DownloadImage(ctx, s.HTTPClient, st.ImageURL)
	if err != nil {
		log.Error("publish: image download failed: %v", err)
		return pipeline.Patch{
			pipeline.FieldPublishStatus: pipeline.StatusFailed,
			pipeline.FieldPublishError:  fmt.Sprintf("could not retrieve generated image: %v", err),
		}, nil
	}

	res, err := pub.Upload(ctx, image, st.Post, st.Credentials)
	if err != nil {
		log.Error("publish: upload to %s failed: %v", platform, err)
		return pipeline.Patch{
			pipeline.FieldPublishStatus: pipeline.StatusFailed,
			pipeline.FieldPublishError:  social.Guidance(platform, err),
		}, nil
	}

	log.Info("published to %s: %s", platform, res.CanonicalURL)
	return pipeline.Patch{
		pipeline.FieldPublishStatus: pipeline.StatusSuccess,
		pipeline.FieldPublishedURL:  res.CanonicalURL,
	}, nil
}
