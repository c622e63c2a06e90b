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
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel scripts Generate responses attempt by attempt.
type fakeModel struct {
	responses []func() (*schema.Message, error)
	calls     int
	lastMsgs  []*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.lastMsgs = msgs
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

func (f *fakeModel) Stream(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func ok(content string) func() (*schema.Message, error) {
	return func() (*schema.Message, error) { return schema.AssistantMessage(content, nil), nil }
}

func fail(err error) func() (*schema.Message, error) {
	return func() (*schema.Message, error) { return nil, err }
}

func TestChatCall(t *testing.T) {
	m := &fakeModel{responses: []func() (*schema.Message, error){ok("hello there")}}
	chat := NewChat(m, ChatOptions{SysPrompt: "You are terse."})

	out, err := chat.Call(context.Background(), "say hello")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello there" {
		t.Errorf("out = %q", out)
	}
	if len(m.lastMsgs) != 2 || m.lastMsgs[0].Role != schema.System || m.lastMsgs[1].Content != "say hello" {
		t.Errorf("messages = %+v", m.lastMsgs)
	}
}

func TestChatCallNoSystemPrompt(t *testing.T) {
	m := &fakeModel{responses: []func() (*schema.Message, error){ok("x")}}
	chat := NewChat(m, ChatOptions{})

	if _, err := chat.Call(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if len(m.lastMsgs) != 1 || m.lastMsgs[0].Role != schema.User {
		t.Errorf("messages = %+v", m.lastMsgs)
	}
}

func TestChatCallRetriesTransientFailure(t *testing.T) {
	m := &fakeModel{responses: []func() (*schema.Message, error){
		fail(errors.New("rate limited")),
		ok("recovered"),
	}}
	chat := NewChat(m, ChatOptions{Retries: 1})

	out, err := chat.Call(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if out != "recovered" || m.calls != 2 {
		t.Errorf("out = %q calls = %d", out, m.calls)
	}
}

func TestChatCallGivesUpAfterRetries(t *testing.T) {
	boom := errors.New("provider down")
	m := &fakeModel{responses: []func() (*schema.Message, error){fail(boom)}}
	chat := NewChat(m, ChatOptions{Retries: 1})

	_, err := chat.Call(context.Background(), "q")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want initial attempt plus one retry", m.calls)
	}
}

func TestChatCallStopsOnCancelledContext(t *testing.T) {
	m := &fakeModel{responses: []func() (*schema.Message, error){fail(errors.New("slow"))}}
	chat := NewChat(m, ChatOptions{Retries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := chat.Call(ctx, "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if m.calls > 1 {
		t.Errorf("calls = %d, must not retry a cancelled context", m.calls)
	}
}
