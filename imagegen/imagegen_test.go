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

package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"created":1756300000,"data":[{"url":"https://img/generated.png"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Size:        "1024x1024",
		CostPerCall: 0.04,
	})
	res, err := c.Generate(context.Background(), "a street food market at dusk")
	require.NoError(t, err)

	assert.Equal(t, "https://img/generated.png", res.URL)
	assert.Equal(t, 0.04, res.Cost)
	assert.Equal(t, "a street food market at dusk", gotReq["prompt"])
	assert.Equal(t, "dall-e-3", gotReq["model"])
	assert.Equal(t, "1024x1024", gotReq["size"])
	assert.Equal(t, "url", gotReq["response_format"])
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"created":1756300000,"data":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}

func TestGenerateProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy violation","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content policy violation")
}
