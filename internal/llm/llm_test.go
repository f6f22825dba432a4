package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestCountMessageTokensIncludesOverhead(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "abcd"},
		{Role: "user", Content: "abcdefgh"},
	}
	// 1 + 2 content tokens plus 15 overhead per message.
	want := 1 + 2 + 2*messageOverheadTokens
	if got := CountMessageTokens(msgs); got != want {
		t.Errorf("CountMessageTokens = %d, want %d", got, want)
	}
}

func TestContextLimit(t *testing.T) {
	if got := ContextLimit("gpt-3.5-turbo"); got != 4096 {
		t.Errorf("gpt-3.5-turbo limit = %d, want 4096", got)
	}
	if got := ContextLimit("some-unknown-model"); got != defaultContextLimit {
		t.Errorf("unknown model limit = %d, want %d", got, defaultContextLimit)
	}
}

func TestPromptCostUnknownModelIsZero(t *testing.T) {
	if got := PromptCost("some-unknown-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %f, want 0", got)
	}
}

func TestPromptCostKnownModel(t *testing.T) {
	if got := PromptCost("gpt-4o", 1000000, 0); got <= 0 {
		t.Errorf("gpt-4o prompt cost = %f, want > 0", got)
	}
	if in, out := PromptCost("gpt-4o", 1000000, 0), PromptCost("gpt-4o", 0, 1000000); out <= in {
		t.Errorf("completion tokens should cost more than prompt tokens: in=%f out=%f", in, out)
	}
}

func TestStubProviderScript(t *testing.T) {
	stub := NewStubProvider()
	stub.QueueResponses("first", "second")

	ctx := context.Background()
	msgs := []Message{{Role: "user", Content: "hi"}}

	c1, err := stub.Complete(ctx, msgs, Options{Model: "stub"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c1.Choices[0].Message.Content != "first" {
		t.Errorf("first reply = %q", c1.Choices[0].Message.Content)
	}
	if c1.ID != "stub-1" {
		t.Errorf("first completion id = %q", c1.ID)
	}

	c2, _ := stub.Complete(ctx, msgs, Options{Model: "stub"})
	if c2.Choices[0].Message.Content != "second" {
		t.Errorf("second reply = %q", c2.Choices[0].Message.Content)
	}

	// Script exhausted; default reply takes over.
	c3, _ := stub.Complete(ctx, msgs, Options{Model: "stub"})
	if c3.Choices[0].Message.Content != "Lorem Ipsum" {
		t.Errorf("third reply = %q", c3.Choices[0].Message.Content)
	}

	if stub.Calls() != 3 {
		t.Errorf("calls = %d, want 3", stub.Calls())
	}
}

func TestStubProviderFailures(t *testing.T) {
	stub := NewStubProvider()
	wantErr := errors.New("boom")
	stub.FailTimes(2, wantErr)

	ctx := context.Background()
	msgs := []Message{{Role: "user", Content: "hi"}}

	for i := 0; i < 2; i++ {
		if _, err := stub.Complete(ctx, msgs, Options{Model: "stub"}); !errors.Is(err, wantErr) {
			t.Fatalf("call %d error = %v, want %v", i+1, err, wantErr)
		}
	}
	if _, err := stub.Complete(ctx, msgs, Options{Model: "stub"}); err != nil {
		t.Fatalf("call after failures exhausted: %v", err)
	}
}

func TestStubProviderMultiChoice(t *testing.T) {
	stub := NewStubProvider()
	stub.SetMultiChoice(3)

	c, err := stub.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{Model: "stub"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(c.Choices) != 3 {
		t.Errorf("choices = %d, want 3", len(c.Choices))
	}
}
