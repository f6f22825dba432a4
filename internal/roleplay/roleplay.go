// Package roleplay orchestrates a two-agent instruction-following
// dialogue: a user-role agent that instructs and an assistant-role agent
// that solves, both played by the model backend.
package roleplay

import (
	"context"
	"fmt"
	"strings"

	"github.com/duetdev/duet/internal/agent"
	"github.com/duetdev/duet/internal/chat"
	"github.com/duetdev/duet/internal/llm"
	"github.com/duetdev/duet/internal/logging"
	"github.com/duetdev/duet/internal/memory"
	"github.com/duetdev/duet/internal/prompts"
)

// Config configures a role-playing session.
type Config struct {
	AssistantRoleName string
	UserRoleName      string
	TaskPrompt        string

	// WithTaskSpecify rewrites the task into a more concrete one with a
	// one-shot call before the dialogue starts. WithTaskPlanner appends
	// an ordered subtask list the same way.
	WithTaskSpecify bool
	WithTaskPlanner bool

	Provider    llm.Provider
	Model       string
	Memory      memory.Store
	Templates   *prompts.Library
	WindowSize  int
	Retry       agent.RetryConfig
	Logger      *logging.Logger
	Temperature float64
}

// ExchangeResult carries the outcome of one assistant/user exchange.
// User is nil when the exchange stopped at the assistant turn.
type ExchangeResult struct {
	Assistant *agent.TurnResult
	User      *agent.TurnResult
}

// RolePlaying drives the alternating dialogue between the two agents.
// Not safe for concurrent use.
type RolePlaying struct {
	assistant *agent.ChatAgent
	user      *agent.ChatAgent

	assistantRoleName string
	userRoleName      string
	taskPrompt        string
	specifiedTask     string
	plannedSubtasks   string

	templates *prompts.Library
	logger    *logging.Logger
}

// New bootstraps a session: optionally specifies and plans the task with
// one-shot calls, renders the role preambles, and constructs both agents.
func New(ctx context.Context, cfg Config) (*RolePlaying, error) {
	templates := cfg.Templates
	if templates == nil {
		templates = prompts.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	logger = logger.WithComponent("roleplay")

	task := strings.TrimSpace(cfg.TaskPrompt)
	if task == "" {
		return nil, fmt.Errorf("task prompt is required")
	}

	r := &RolePlaying{
		assistantRoleName: cfg.AssistantRoleName,
		userRoleName:      cfg.UserRoleName,
		taskPrompt:        task,
		templates:         templates,
		logger:            logger,
	}

	meta := map[string]string{
		"assistant_role": cfg.AssistantRoleName,
		"user_role":      cfg.UserRoleName,
		"task":           task,
	}

	if cfg.WithTaskSpecify {
		specified, err := oneShot(ctx, cfg, logger, "Task Specifier",
			"You can make a task more specific.",
			prompts.Render(templates.TaskSpecify, meta))
		if err != nil {
			return nil, fmt.Errorf("task specification failed: %w", err)
		}
		r.specifiedTask = specified
		task = specified
		meta["task"] = task
	}

	if cfg.WithTaskPlanner {
		planned, err := oneShot(ctx, cfg, logger, "Task Planner",
			"You divide tasks into subtasks.",
			prompts.Render(templates.TaskPlan, meta))
		if err != nil {
			return nil, fmt.Errorf("task planning failed: %w", err)
		}
		r.plannedSubtasks = planned
		task = task + "\n" + planned
		meta["task"] = task
	}

	background := templates.Background
	if background != "" && !strings.HasSuffix(background, "\n") {
		background += "\n"
	}
	meta["background"] = background

	assistantSys := chat.NewSystemMessage(cfg.AssistantRoleName, chat.RoleTypeAssistant,
		prompts.Render(templates.Role("assistant"), meta))
	userSys := chat.NewSystemMessage(cfg.UserRoleName, chat.RoleTypeUser,
		prompts.Render(templates.Role("user"), meta))

	r.assistant = agent.New(agent.Config{
		SystemMessage: assistantSys,
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		Memory:        cfg.Memory,
		WindowSize:    cfg.WindowSize,
		Retry:         cfg.Retry,
		Logger:        logger.WithComponent("agent." + cfg.AssistantRoleName),
		Temperature:   cfg.Temperature,
	})
	r.user = agent.New(agent.Config{
		SystemMessage: userSys,
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		Memory:        cfg.Memory,
		WindowSize:    cfg.WindowSize,
		Retry:         cfg.Retry,
		Logger:        logger.WithComponent("agent." + cfg.UserRoleName),
		Temperature:   cfg.Temperature,
	})

	return r, nil
}

// oneShot runs a single turn against a throwaway agent and returns the
// trimmed reply content.
func oneShot(ctx context.Context, cfg Config, logger *logging.Logger, roleName, system, prompt string) (string, error) {
	a := agent.New(agent.Config{
		SystemMessage: chat.NewSystemMessage(roleName, chat.RoleTypeDefault, system),
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		Retry:         cfg.Retry,
		Logger:        logger.WithComponent("agent." + roleName),
		Temperature:   cfg.Temperature,
	})
	result, err := a.Step(ctx, chat.NewUserMessage(roleName, prompt))
	if err != nil {
		return "", err
	}
	msg, err := result.Msg()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

// InitChat resets both agents and builds the opening instruction from
// the named phase template. The opening message is also injected into
// the user agent's history as if the user agent had authored it, so the
// user agent sees a coherent conversation from its side.
func (r *RolePlaying) InitChat(ctx context.Context, phase string, placeholders map[string]string) (chat.Message, error) {
	r.assistant.Reset()
	r.user.Reset()

	merged := map[string]string{
		"assistant_role": r.assistantRoleName,
		"user_role":      r.userRoleName,
		"task":           r.Task(),
		"examples":       "",
	}
	for k, v := range placeholders {
		merged[k] = v
	}

	if merged["examples"] == "" {
		if recalled, ok := r.assistant.RetrieveMemory(ctx, r.Task()); ok {
			merged["examples"] = recalled
		}
	}

	tmpl := r.templates.Phase(phase)
	if tmpl == "" {
		return chat.Message{}, fmt.Errorf("unknown phase template %q", phase)
	}
	content := prompts.Render(tmpl, merged)

	msg := chat.NewUserMessage(r.userRoleName, content)
	r.user.AppendMessage(msg.WithRole(chat.RoleAssistant))

	r.logger.ExchangeStart(r.assistantRoleName, r.userRoleName)
	return msg, nil
}

// Step runs one exchange: the assistant answers the inbound instruction,
// then (unless assistantOnly is set) the user agent reacts to the
// answer. Replies are appended to each agent's history only when the
// dialogue continues past them.
func (r *RolePlaying) Step(ctx context.Context, userMsg chat.Message, assistantOnly bool) (*ExchangeResult, error) {
	assistantResult, err := r.assistant.Step(ctx, userMsg.ForBackend())
	if err != nil {
		return nil, err
	}
	if assistantResult.Terminated || len(assistantResult.Msgs) == 0 {
		return &ExchangeResult{Assistant: assistantResult}, nil
	}

	assistantMsg, err := assistantResult.Msg()
	if err != nil {
		return nil, err
	}
	if r.assistant.InfoSignal() {
		return &ExchangeResult{Assistant: assistantResult}, nil
	}
	r.assistant.AppendMessage(assistantMsg)

	if assistantOnly {
		return &ExchangeResult{Assistant: assistantResult}, nil
	}

	userResult, err := r.user.Step(ctx, assistantMsg.ForBackend())
	if err != nil {
		return nil, err
	}
	if userResult.Terminated || len(userResult.Msgs) == 0 {
		return &ExchangeResult{Assistant: assistantResult, User: userResult}, nil
	}

	userMsgOut, err := userResult.Msg()
	if err != nil {
		return nil, err
	}
	if r.user.InfoSignal() {
		return &ExchangeResult{Assistant: assistantResult, User: userResult}, nil
	}
	r.user.AppendMessage(userMsgOut)

	return &ExchangeResult{Assistant: assistantResult, User: userResult}, nil
}

// Assistant returns the assistant-role agent.
func (r *RolePlaying) Assistant() *agent.ChatAgent {
	return r.assistant
}

// User returns the user-role agent.
func (r *RolePlaying) User() *agent.ChatAgent {
	return r.user
}

// Task returns the effective task prompt, after any specification and
// planning the bootstrap performed.
func (r *RolePlaying) Task() string {
	task := r.taskPrompt
	if r.specifiedTask != "" {
		task = r.specifiedTask
	}
	if r.plannedSubtasks != "" {
		task = task + "\n" + r.plannedSubtasks
	}
	return task
}

// OriginalTask returns the task prompt as given.
func (r *RolePlaying) OriginalTask() string {
	return r.taskPrompt
}

// SpecifiedTask returns the rewritten task, or "" when specification was
// not requested.
func (r *RolePlaying) SpecifiedTask() string {
	return r.specifiedTask
}

// PlannedSubtasks returns the planner output, or "" when planning was
// not requested.
func (r *RolePlaying) PlannedSubtasks() string {
	return r.plannedSubtasks
}

// Done reports whether either agent has ended the dialogue, through a
// hard termination or an info sentinel.
func (r *RolePlaying) Done() bool {
	return r.assistant.Terminated() || r.user.Terminated() ||
		r.assistant.InfoSignal() || r.user.InfoSignal()
}
