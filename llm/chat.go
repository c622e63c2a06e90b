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

	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/postpipe/internal/log"
)

var _ Generator = (*Chat)(nil)

// Chat is a plain completion Generator over a ChatModel: one system prompt,
// one user message, no tools. Transient failures are retried with capped
// exponential backoff; each attempt gets its own timeout.
type Chat struct {
	model     ChatModel
	sysPrompt string
	retries   int
	timeout   time.Duration
}

type ChatOptions struct {
	SysPrompt string
	Retries   int           // default: 3
	Timeout   time.Duration // per attempt, default: 120s
}

func NewChat(model ChatModel, opts ChatOptions) *Chat {
	retries := opts.Retries
	if retries == 0 {
		retries = 3
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Chat{
		model:     model,
		sysPrompt: opts.SysPrompt,
		retries:   retries,
		timeout:   timeout,
	}
}

// Call implements Generator.
func (c *Chat) Call(ctx context.Context, input string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if c.sysPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(c.sysPrompt))
	}
	msgs = append(msgs, schema.UserMessage(input))
	log.Debug("[User] %s", input)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call (attempt %d/%d)...", attempt+1, c.retries+1)
			// Exponential backoff: wait 1s, 2s, 4s...
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			if waitTime > 10*time.Second {
				waitTime = 10 * time.Second
			}
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := c.model.Generate(attemptCtx, msgs)
		cancel()
		if err == nil {
			log.Debug("[Assistant] %s", out.Content)
			return out.Content, nil
		}
		lastErr = err
		log.Error("LLM call failed: %v", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
