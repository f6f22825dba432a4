package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duetdev/duet/internal/agent"
	"github.com/duetdev/duet/internal/llm"
	"github.com/duetdev/duet/internal/logging"
	"github.com/duetdev/duet/internal/memory"
	"github.com/duetdev/duet/internal/prompts"
	"github.com/duetdev/duet/internal/roleplay"
)

// RunnerConfig configures one dialogue run.
type RunnerConfig struct {
	AssistantRoleName string
	UserRoleName      string
	TaskPrompt        string
	ProjectName       string
	Phase             string
	WithTaskSpecify   bool
	WithTaskPlanner   bool
	MaxExchanges      int
	WindowSize        int

	Provider  llm.Provider
	Model     string
	Memory    memory.Store
	Templates *prompts.Library
	Retry     agent.RetryConfig
	Logger    *logging.Logger

	// OnTurn, when set, is called with each produced message so callers
	// can stream the transcript.
	OnTurn func(roleName, content string)
}

// Runner executes a full role-playing dialogue to completion.
type Runner struct {
	cfg    RunnerConfig
	logger *logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Phase == "" {
		cfg.Phase = "discussion"
	}
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = 50
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.WithComponent("runner"),
	}
}

var tracer = otel.Tracer("duet/service")

// Run drives the dialogue until an agent signals completion, an agent
// terminates, or the exchange budget runs out. It returns the last
// assistant deliverable.
func (r *Runner) Run(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "runner.run", trace.WithAttributes(
		attribute.String("runner.assistant", r.cfg.AssistantRoleName),
		attribute.String("runner.user", r.cfg.UserRoleName),
		attribute.String("runner.phase", r.cfg.Phase),
	))
	defer span.End()

	result, err := r.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (r *Runner) run(ctx context.Context) (string, error) {
	session, err := roleplay.New(ctx, roleplay.Config{
		AssistantRoleName: r.cfg.AssistantRoleName,
		UserRoleName:      r.cfg.UserRoleName,
		TaskPrompt:        r.cfg.TaskPrompt,
		WithTaskSpecify:   r.cfg.WithTaskSpecify,
		WithTaskPlanner:   r.cfg.WithTaskPlanner,
		Provider:          r.cfg.Provider,
		Model:             r.cfg.Model,
		Memory:            r.cfg.Memory,
		Templates:         r.cfg.Templates,
		WindowSize:        r.cfg.WindowSize,
		Retry:             r.cfg.Retry,
		Logger:            r.cfg.Logger,
	})
	if err != nil {
		return "", err
	}

	placeholders := map[string]string{}
	if r.cfg.ProjectName != "" {
		placeholders["project"] = r.cfg.ProjectName
	}

	msg, err := session.InitChatTraced(ctx, r.cfg.Phase, placeholders)
	if err != nil {
		return "", err
	}

	var lastAssistant string
	for exchange := 0; exchange < r.cfg.MaxExchanges; exchange++ {
		result, err := session.StepTraced(ctx, msg, false)
		if err != nil {
			return lastAssistant, err
		}

		if result.Assistant.Terminated || len(result.Assistant.Msgs) == 0 {
			break
		}
		assistantMsg, err := result.Assistant.Msg()
		if err != nil {
			return lastAssistant, err
		}
		lastAssistant = assistantMsg.Content
		r.emit(session.Assistant().RoleName(), assistantMsg.Content)

		if session.Assistant().InfoSignal() {
			lastAssistant = stripInfoSentinel(assistantMsg.Content, lastAssistant)
			break
		}
		if result.User == nil || result.User.Terminated || len(result.User.Msgs) == 0 {
			break
		}
		userMsg, err := result.User.Msg()
		if err != nil {
			return lastAssistant, err
		}
		r.emit(session.User().RoleName(), userMsg.Content)

		if session.User().InfoSignal() {
			lastAssistant = stripInfoSentinel(userMsg.Content, lastAssistant)
			break
		}

		msg = userMsg
	}

	r.seedMemory(ctx, session.Task(), lastAssistant)
	return lastAssistant, nil
}

func (r *Runner) emit(roleName, content string) {
	if r.cfg.OnTurn != nil {
		r.cfg.OnTurn(roleName, content)
	}
}

// seedMemory records the finished task and its deliverable so future
// sessions can recall it. Failures are logged and swallowed.
func (r *Runner) seedMemory(ctx context.Context, task, deliverable string) {
	if r.cfg.Memory == nil || deliverable == "" {
		return
	}

	content := fmt.Sprintf("Task: %s\nOutcome: %s", task, deliverable)
	vector, err := r.cfg.Provider.Embed(ctx, content)
	if err != nil {
		r.logger.MemoryError("embed", err)
		return
	}
	if len(vector) == 0 {
		return
	}

	item := memory.Item{
		Content: content,
		Vector:  vector,
		Metadata: map[string]string{
			"kind": "dialogue_outcome",
		},
	}
	if r.cfg.ProjectName != "" {
		item.Metadata["project"] = r.cfg.ProjectName
	}
	if err := r.cfg.Memory.Add(ctx, []memory.Item{item}); err != nil {
		r.logger.MemoryError("add", err)
	}
}

// stripInfoSentinel extracts the deliverable carried on an info line.
// When the info line has no payload the previous deliverable stands.
func stripInfoSentinel(content, fallback string) string {
	lines := strings.Split(content, "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "<INFO>") {
		return fallback
	}
	payload := strings.TrimSpace(strings.TrimPrefix(last, "<INFO>"))
	if payload == "" {
		return fallback
	}
	return payload
}
