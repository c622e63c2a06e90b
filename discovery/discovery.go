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

// Package discovery is the content-discovery collaborator: a web search
// client returning candidate items for curation. Empty result sets are
// valid; callers own the fallback.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Result is one discovered content item.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// Client is the search contract consumed by the fetch step.
type Client interface {
	Search(ctx context.Context, query, location string) ([]Result, error)
}

// HTTPClient talks to a serper-style JSON search API.
type HTTPClient struct {
	endpoint string
	apiKey   string
	num      int
	httpc    *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpc = c }
}

// WithResultLimit caps the number of requested results (default 10).
func WithResultLimit(n int) Option {
	return func(h *HTTPClient) { h.num = n }
}

func NewHTTPClient(endpoint, apiKey string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		num:      10,
		httpc:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type searchRequest struct {
	Q        string `json:"q"`
	Location string `json:"location,omitempty"`
	Num      int    `json:"num"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Search implements Client.
func (h *HTTPClient) Search(ctx context.Context, query, location string) ([]Result, error) {
	body, err := json.Marshal(searchRequest{Q: query, Location: location, Num: h.num})
	if err != nil {
		return nil, errors.Wrap(err, "marshal search request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", h.apiKey)

	resp, err := h.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read search response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("search returned status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}
	return sr.Organic, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
