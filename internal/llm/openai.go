package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/duetdev/duet/internal/logging"
)

// OpenAIProvider talks to an OpenAI-compatible HTTP API for completions
// and embeddings.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	embedModel string
	client     *http.Client
	logger     *logging.Logger
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // default: https://api.openai.com/v1
	EmbedModel string // default: text-embedding-3-small
	Logger     *logging.Logger
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New().WithComponent("llm")
	}
	return &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		embedModel: embedModel,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// Complete implements the Provider completion capability.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	reqBody := chatCompletionRequest{
		Model:    opts.Model,
		Messages: messages,
	}
	if opts.Temperature != 0 {
		reqBody.Temperature = &opts.Temperature
	}
	if opts.TopP != 0 {
		reqBody.TopP = &opts.TopP
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion Completion
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	cost := PromptCost(opts.Model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	p.logger.UsageInfo(opts.Model, completion.Usage.PromptTokens,
		completion.Usage.CompletionTokens, completion.Usage.TotalTokens, cost)

	return &completion, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed implements the Provider embedding capability.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: p.embedModel,
		Input: []string{text},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(embedResp.Data) == 0 {
		return nil, nil
	}

	return embedResp.Data[0].Embedding, nil
}
