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

// Package llm is the language-generation collaborator: a thin completion
// interface over eino chat models. Pipeline steps depend only on Generator;
// responses may be non-JSON or fenced and callers must tolerate that.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
)

type ModelConfig struct {
	Name        string        `json:"name" yaml:"name"` // alias of the config, not endpoint!
	APIType     ModelType     `json:"type" yaml:"type"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKey      string        `json:"api_key" yaml:"api_key"`
	ModelName   string        `json:"model_name" yaml:"model_name"` // the endpoint of the model, like `claude-opus-4-20250514`
	Temperature *float32      `json:"temperature" yaml:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"` // HTTP request timeout, default: 120s
	Retries     int           `json:"retries" yaml:"retries"` // Number of retries on failure, default: 3
	CostPerCall float64       `json:"cost_per_call" yaml:"cost_per_call"`
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
)

// Generator is the interface pipeline steps call for text completion.
type Generator interface {
	// Call calls the LLM with the input and returns the raw completion text.
	Call(ctx context.Context, input string) (string, error)
}

// ChatModel is the interface for the LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}
