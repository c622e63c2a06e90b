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

// Package social is the publishing collaborator. Provider failures are
// classified into a small taxonomy so the pipeline can turn them into
// actionable user-facing guidance instead of raw provider errors.
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// UploadResult is a successful publication.
type UploadResult struct {
	MediaID      string
	CanonicalURL string
}

// Publisher is the publishing contract consumed by the publish step.
// Credentials are opaque to the engine; the publisher validates their shape.
type Publisher interface {
	Platform() string
	Upload(ctx context.Context, image []byte, caption string, credentials any) (*UploadResult, error)
}

// Failure categories. Publishers wrap their provider errors with one of
// these sentinels so callers can classify without knowing the provider.
var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrChallengeRequired = errors.New("verification challenge required")
	ErrUnsupported       = errors.New("platform not supported")
)

// Category is the coarse class of a publishing failure.
type Category int

const (
	CategoryTransient Category = iota // network, timeout, rate limit
	CategoryAuth
	CategoryChallenge
	CategoryUnsupported
)

// Classify maps a publishing error to its category. Anything unrecognized
// is treated as transient.
func Classify(err error) Category {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return CategoryAuth
	case errors.Is(err, ErrChallengeRequired):
		return CategoryChallenge
	case errors.Is(err, ErrUnsupported):
		return CategoryUnsupported
	default:
		return CategoryTransient
	}
}

// Guidance turns a publishing error into a user-actionable message.
func Guidance(platform string, err error) string {
	switch Classify(err) {
	case CategoryAuth:
		return fmt.Sprintf("%s credentials are missing or expired. Reconnect the account and retry.", platform)
	case CategoryChallenge:
		return fmt.Sprintf("%s requires a verification challenge. Log in to the %s app, complete the check, then retry.", platform, platform)
	case CategoryUnsupported:
		return fmt.Sprintf("publishing to %s is not supported yet", platform)
	default:
		return fmt.Sprintf("publishing to %s failed: %v. This is usually transient; retry in a few minutes.", platform, err)
	}
}

// maxImageBytes caps downloads; generated images are well under this.
const maxImageBytes = 20 << 20

// DownloadImage fetches the generated image so it can be re-uploaded to the
// publishing service.
func DownloadImage(ctx context.Context, httpc *http.Client, url string) ([]byte, error) {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build image request")
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download image")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("image download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read image body")
	}
	if len(data) > maxImageBytes {
		return nil, errors.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("image download returned empty body")
	}
	return data, nil
}
