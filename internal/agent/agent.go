// Package agent implements the turn executor: one logical agent that
// owns a conversation history and produces exactly one reply per turn.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duetdev/duet/internal/chat"
	"github.com/duetdev/duet/internal/llm"
	"github.com/duetdev/duet/internal/logging"
	"github.com/duetdev/duet/internal/memory"
)

// infoSentinel marks an out-of-band "task is answered" signal. A reply
// whose last line starts with this prefix ends the dialogue by
// convention, without a hard termination.
const infoSentinel = "<INFO>"

// memoryRecallLimit is the number of nearest memories fetched per query.
const memoryRecallLimit = 3

// terminationBudgetExceeded is the reason recorded when the context
// window outgrows the model's token budget.
const terminationBudgetExceeded = "max_tokens_exceeded"

// Retry configuration defaults.
const (
	defaultMaxAttempts = 5
	defaultInitBackoff = 5 * time.Second
	defaultMaxBackoff  = 60 * time.Second
	backoffFactor      = 2.0
)

// RetryConfig bounds the attempt-with-backoff loop around gateway calls.
type RetryConfig struct {
	MaxAttempts int
	InitBackoff time.Duration
	MaxBackoff  time.Duration
}

// withDefaults returns effective retry settings.
func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = defaultMaxAttempts
	}
	if r.InitBackoff <= 0 {
		r.InitBackoff = defaultInitBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = defaultMaxBackoff
	}
	return r
}

// Config configures a ChatAgent.
type Config struct {
	SystemMessage chat.Message
	Provider      llm.Provider
	Model         string
	TokenLimit    int          // 0 = derive from Model
	WindowSize    int          // 0 = no windowing
	Memory        memory.Store // nil = no memory bound
	Retry         RetryConfig
	Logger        *logging.Logger
	Temperature   float64
}

// ChatAgent executes turns for one logical agent. Not safe for
// concurrent use; each dialogue session owns its agents exclusively.
type ChatAgent struct {
	systemMessage chat.Message
	roleName      string
	roleType      chat.RoleType
	provider      llm.Provider
	model         string
	tokenLimit    int
	windowSize    int
	store         memory.Store
	retry         RetryConfig
	logger        *logging.Logger
	temperature   float64

	history    *chat.History
	terminated bool
	infoSignal bool
}

// New creates a ChatAgent seeded with its system message.
func New(cfg Config) *ChatAgent {
	tokenLimit := cfg.TokenLimit
	if tokenLimit <= 0 {
		tokenLimit = llm.ContextLimit(cfg.Model)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New().WithComponent("agent")
	}
	return &ChatAgent{
		systemMessage: cfg.SystemMessage,
		roleName:      cfg.SystemMessage.RoleName,
		roleType:      cfg.SystemMessage.RoleType,
		provider:      cfg.Provider,
		model:         cfg.Model,
		tokenLimit:    tokenLimit,
		windowSize:    cfg.WindowSize,
		store:         cfg.Memory,
		retry:         cfg.Retry.withDefaults(),
		logger:        logger,
		temperature:   cfg.Temperature,
		history:       chat.NewHistory(cfg.SystemMessage),
	}
}

// RoleName returns the agent's fixed role name.
func (a *ChatAgent) RoleName() string {
	return a.roleName
}

// RoleType returns the agent's fixed role type.
func (a *ChatAgent) RoleType() chat.RoleType {
	return a.roleType
}

// SystemMessage returns the agent's system preamble.
func (a *ChatAgent) SystemMessage() chat.Message {
	return a.systemMessage
}

// History returns the stored conversation messages.
func (a *ChatAgent) History() []chat.Message {
	return a.history.Messages()
}

// Terminated reports whether the agent reached its absorbing state.
func (a *ChatAgent) Terminated() bool {
	return a.terminated
}

// InfoSignal reports whether an out-of-band info sentinel was seen.
func (a *ChatAgent) InfoSignal() bool {
	return a.infoSignal
}

// AppendMessage records a message in the agent's own history so future
// windowing sees it.
func (a *ChatAgent) AppendMessage(m chat.Message) []chat.Message {
	return a.history.Append(m)
}

// Reset clears the termination and info flags and truncates the history
// back to the system message alone.
func (a *ChatAgent) Reset() []chat.Message {
	a.terminated = false
	a.infoSignal = false
	return a.history.Reset()
}

// Step advances the conversation by one turn: append the inbound
// message, window the context, enforce the token budget, then call the
// gateway with bounded retries. The reply is NOT appended to the
// agent's history; the caller decides whether the turn continues the
// conversation.
func (a *ChatAgent) Step(ctx context.Context, inbound chat.Message) (*TurnResult, error) {
	start := time.Now()

	a.history.Append(inbound)
	window := a.history.Window(a.windowSize)
	wire := toWire(window)
	numTokens := llm.CountMessageTokens(wire)

	a.logger.TurnStart(a.roleName, numTokens)

	if numTokens >= a.tokenLimit {
		a.terminated = true
		reasons := []string{terminationBudgetExceeded}
		a.logger.TurnTerminated(a.roleName, reasons, numTokens)
		return &TurnResult{
			Terminated: true,
			Info: Info{
				TerminationReasons: reasons,
				NumTokens:          numTokens,
			},
		}, nil
	}

	completion, err := a.completeWithRetry(ctx, wire)
	if err != nil {
		a.terminated = true
		return nil, err
	}

	msgs := make([]chat.Message, 0, len(completion.Choices))
	reasons := make([]string, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		msgs = append(msgs, replyFromChoice(a.roleName, a.roleType, choice))
		reasons = append(reasons, choice.FinishReason)
	}

	if hasInfoSentinel(msgs[0].Content) {
		a.infoSignal = true
	}

	usage := completion.Usage
	a.logger.TurnComplete(a.roleName, reasons, time.Since(start))

	return &TurnResult{
		Msgs: msgs,
		Info: Info{
			ID:                 completion.ID,
			Usage:              &usage,
			TerminationReasons: reasons,
			NumTokens:          numTokens,
		},
	}, nil
}

// completeWithRetry calls the gateway with bounded exponential backoff.
// Attempts never overlap; only the final failure propagates.
func (a *ChatAgent) completeWithRetry(ctx context.Context, wire []llm.Message) (*llm.Completion, error) {
	opts := llm.Options{Model: a.model, Temperature: a.temperature}
	backoff := a.retry.InitBackoff

	var lastErr error
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		completion, err := a.provider.Complete(ctx, wire, opts)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == a.retry.MaxAttempts {
			break
		}

		a.logger.RetryAttempt(attempt, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > a.retry.MaxBackoff {
			backoff = a.retry.MaxBackoff
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", a.retry.MaxAttempts, lastErr)
}

// RetrieveMemory searches the bound memory store for content relevant
// to query and formats it as a "relevant past memories" block. Every
// failure is recovered locally: logged and reported as no memory.
func (a *ChatAgent) RetrieveMemory(ctx context.Context, query string) (string, bool) {
	if a.store == nil {
		return "", false
	}

	vector, err := a.provider.Embed(ctx, query)
	if err != nil {
		a.logger.MemoryError("embed", err)
		return "", false
	}
	if len(vector) == 0 {
		return "", false
	}

	items, err := a.store.Search(ctx, vector, memoryRecallLimit, nil)
	if err != nil {
		a.logger.MemoryError("search", err)
		return "", false
	}
	if len(items) == 0 {
		return "", false
	}

	a.logger.MemoryRecall(len(items))

	var b strings.Builder
	b.WriteString("\n\nRelevant past memories:\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item.Content)
		b.WriteString("\n")
	}
	return b.String(), true
}

// toWire maps chat messages to the wire-level shape.
func toWire(messages []chat.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// replyFromChoice maps a wire-level choice to a reply message labeled
// with this agent's fixed identity.
func replyFromChoice(roleName string, roleType chat.RoleType, choice llm.Choice) chat.Message {
	role := chat.Role(choice.Message.Role)
	if role == "" {
		role = chat.RoleAssistant
	}
	return chat.Message{
		RoleName: roleName,
		RoleType: roleType,
		Role:     role,
		Content:  choice.Message.Content,
	}
}

// hasInfoSentinel reports whether the last line of content carries the
// info marker.
func hasInfoSentinel(content string) bool {
	lines := strings.Split(content, "\n")
	return strings.HasPrefix(lines[len(lines)-1], infoSentinel)
}
