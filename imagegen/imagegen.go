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

// Package imagegen is the image-generation collaborator. A failed
// generation is a hard failure for the run: no placeholder is substituted,
// because a broken placeholder would only be rejected later by the
// publishing service.
package imagegen

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pkg/errors"
)

// Result is a generated image reference.
type Result struct {
	URL      string
	MimeType string
	Cost     float64
}

// Client is the generation contract consumed by the image step.
type Client interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// OpenAIClient generates images through the OpenAI images API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	size        string
	costPerCall float64
}

type Config struct {
	APIKey      string
	BaseURL     string  // optional, for compatible providers
	Model       string  // default: dall-e-3
	Size        string  // default: 1024x1024
	CostPerCall float64 // reported into apiCosts under "image"
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	size := cfg.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}
	var client *openai.Client
	if cfg.BaseURL != "" {
		c := openai.DefaultConfig(cfg.APIKey)
		c.BaseURL = cfg.BaseURL
		client = openai.NewClientWithConfig(c)
	} else {
		client = openai.NewClient(cfg.APIKey)
	}
	return &OpenAIClient{
		client:      client,
		model:       model,
		size:        size,
		costPerCall: cfg.CostPerCall,
	}
}

// Generate implements Client.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (*Result, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           c.size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, errors.New("image API returned no image")
	}
	return &Result{
		URL:      resp.Data[0].URL,
		MimeType: "image/png",
		Cost:     c.costPerCall,
	}, nil
}
