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

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/pkg/errors"
)

// NewChatModel builds the provider-specific eino chat model for m.
func NewChatModel(ctx context.Context, m ModelConfig) (ChatModel, error) {
	if m.MaxTokens == 0 {
		m.MaxTokens = 4 * 1024
	}
	if m.Timeout == 0 {
		m.Timeout = 120 * time.Second
	}
	switch m.APIType {
	case ModelTypeARK:
		model, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new ark chat model")
		}
		return model, nil
	case ModelTypeOpenAI:
		model, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new openai chat model")
		}
		return model, nil
	case ModelTypeDashScope:
		// DashScope (Qwen) uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		model, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new qwen chat model")
		}
		return model, nil
	case ModelTypeDeepSeek:
		// DeepSeek uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		model, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new deepseek chat model")
		}
		return model, nil
	case ModelTypeOllama:
		model, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: m.BaseURL,
			Model:   m.ModelName,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new ollama chat model")
		}
		return model, nil
	case ModelTypeClaude:
		model, err := claude.NewChatModel(ctx, &claude.Config{
			BaseURL:     &m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new claude chat model")
		}
		return model, nil
	}
	return nil, errors.Errorf("unsupported model type %q", m.APIType)
}
