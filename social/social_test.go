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

package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, CategoryAuth, Classify(ErrAuthRequired))
	assert.Equal(t, CategoryAuth, Classify(errors.Wrap(ErrAuthRequired, "provider: token expired")))
	assert.Equal(t, CategoryChallenge, Classify(ErrChallengeRequired))
	assert.Equal(t, CategoryUnsupported, Classify(ErrUnsupported))
	assert.Equal(t, CategoryTransient, Classify(errors.New("connection reset")))
}

func TestGuidance(t *testing.T) {
	msg := Guidance("instagram", errors.Wrap(ErrAuthRequired, "provider: token expired"))
	assert.Contains(t, msg, "instagram")
	assert.Contains(t, msg, "Reconnect")

	msg = Guidance("instagram", ErrChallengeRequired)
	assert.Contains(t, msg, "verification challenge")

	msg = Guidance("tiktok", ErrUnsupported)
	assert.Contains(t, msg, "not supported")

	msg = Guidance("instagram", errors.New("502 bad gateway"))
	assert.Contains(t, msg, "retry")
}

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/empty.png":
			// 200 with no body
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	_, err = DownloadImage(context.Background(), srv.Client(), srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = DownloadImage(context.Background(), srv.Client(), srv.URL+"/empty.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestDownloadImageSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxImageBytes+1)))
	}))
	defer srv.Close()

	_, err := DownloadImage(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
