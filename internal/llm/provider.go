// Package llm provides the model gateway: a uniform capability surface
// for chat completions and embeddings over a remote LLM service.
package llm

import "context"

// Message is the wire-level message shape sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one generated reply with its finish reason.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Completion is the response of one completion call.
type Completion struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Usage   Usage    `json:"usage"`
	Choices []Choice `json:"choices"`
}

// Options carries per-call settings for a completion.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
}

// Provider is the model gateway capability. Implementations must be safe
// for concurrent use by independent sessions.
type Provider interface {
	// Complete generates a chat completion for the given context.
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)

	// Embed generates an embedding vector for the given text. A nil or
	// empty result without error means no embedding is available.
	Embed(ctx context.Context, text string) ([]float32, error)
}
