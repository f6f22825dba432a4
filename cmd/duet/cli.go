package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/duetdev/duet/internal/agent"
	"github.com/duetdev/duet/internal/config"
	"github.com/duetdev/duet/internal/llm"
	"github.com/duetdev/duet/internal/logging"
	"github.com/duetdev/duet/internal/memory"
	"github.com/duetdev/duet/internal/prompts"
	"github.com/duetdev/duet/internal/service"
)

const version = "0.1.0"

// CLI is the top-level command structure.
type CLI struct {
	Config  string `help:"Path to TOML config file." default:"duet.toml"`
	Verbose bool   `help:"Enable debug logging." short:"v"`

	Run     RunCmd     `cmd:"" help:"Run a single role-playing dialogue."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP job service."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

// RunCmd runs one dialogue to completion and prints the transcript.
type RunCmd struct {
	Task          string `arg:"" help:"Task prompt for the dialogue."`
	Project       string `help:"Project name used in prompts and memory."`
	AssistantRole string `help:"Assistant role name." default:""`
	UserRole      string `help:"User role name." default:""`
	Specify       bool   `help:"Rewrite the task into a more specific one first."`
	Plan          bool   `help:"Plan subtasks before the dialogue starts."`
	Exchanges     int    `help:"Maximum assistant/user exchanges." default:"0"`
	Prompts       string `help:"Path to a YAML prompt template file."`
}

// ServeCmd starts the HTTP job service.
type ServeCmd struct {
	Listen string `help:"Listen address, overrides config." default:""`
}

// VersionCmd prints the version.
type VersionCmd struct{}

var (
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	bodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// runContext bundles what each subcommand needs.
type runContext struct {
	cfg    *config.Config
	logger *logging.Logger
}

func buildProvider(cfg *config.Config, logger *logging.Logger) (llm.Provider, error) {
	if cfg.LLM.Provider == "stub" {
		return llm.NewStubProvider(), nil
	}
	apiKey, err := cfg.GetAPIKey()
	if err != nil {
		return nil, err
	}
	return llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.LLM.BaseURL,
		EmbedModel: cfg.LLM.EmbedModel,
		Logger:     logger.WithComponent("llm"),
	}), nil
}

func buildMemory(cfg *config.Config) (memory.Store, error) {
	if !cfg.Memory.Enabled {
		return nil, nil
	}
	return memory.NewSQLiteStore(memory.SQLiteConfig{
		Path:      cfg.Memory.Path,
		Dimension: cfg.Memory.Dimension,
	})
}

func buildRetry(cfg *config.Config) agent.RetryConfig {
	return agent.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		InitBackoff: secondsToDuration(cfg.Retry.InitialBackoffSeconds),
		MaxBackoff:  secondsToDuration(cfg.Retry.MaxBackoffSeconds),
	}
}

// Run implements the run subcommand.
func (c *RunCmd) Run(rc *runContext) error {
	cfg := rc.cfg

	provider, err := buildProvider(cfg, rc.logger)
	if err != nil {
		return err
	}

	store, err := buildMemory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	templates := prompts.Default()
	if c.Prompts != "" {
		templates, err = prompts.Load(c.Prompts)
		if err != nil {
			return err
		}
	}

	assistantRole := c.AssistantRole
	if assistantRole == "" {
		assistantRole = cfg.Chat.AssistantRole
	}
	userRole := c.UserRole
	if userRole == "" {
		userRole = cfg.Chat.UserRole
	}
	maxExchanges := c.Exchanges
	if maxExchanges <= 0 {
		maxExchanges = cfg.Chat.MaxExchanges
	}

	runner := service.NewRunner(service.RunnerConfig{
		AssistantRoleName: assistantRole,
		UserRoleName:      userRole,
		TaskPrompt:        c.Task,
		ProjectName:       c.Project,
		WithTaskSpecify:   c.Specify || cfg.Chat.WithTaskSpecify,
		WithTaskPlanner:   c.Plan || cfg.Chat.WithTaskPlanner,
		MaxExchanges:      maxExchanges,
		WindowSize:        cfg.Chat.WindowSize,
		Provider:          provider,
		Model:             cfg.LLM.Model,
		Memory:            store,
		Templates:         templates,
		Retry:             buildRetry(cfg),
		Logger:            rc.logger,
		OnTurn: func(roleName, content string) {
			printTurn(roleName, assistantRole, content)
		},
	})

	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}
	if result != "" {
		fmt.Println()
		fmt.Println(assistantStyle.Render("Deliverable:"))
		fmt.Println(bodyStyle.Render(wordwrap.String(result, 100)))
	}
	return nil
}

// printTurn renders one transcript turn to stdout.
func printTurn(roleName, assistantRole, content string) {
	style := userStyle
	if roleName == assistantRole {
		style = assistantStyle
	}
	fmt.Println(style.Render(roleName + ":"))
	fmt.Println(bodyStyle.Render(wordwrap.String(content, 100)))
	fmt.Println()
}

// Run implements the serve subcommand.
func (c *ServeCmd) Run(rc *runContext) error {
	cfg := rc.cfg

	provider, err := buildProvider(cfg, rc.logger)
	if err != nil {
		return err
	}

	memStore, err := buildMemory(cfg)
	if err != nil {
		return err
	}
	if memStore != nil {
		defer memStore.Close()
	}

	var store service.Store
	if cfg.Service.StorePath != "" {
		store, err = service.NewSQLiteStore(cfg.Service.StorePath)
		if err != nil {
			return err
		}
	} else {
		store = service.NewMemoryStore()
	}
	defer store.Close()

	listen := c.Listen
	if listen == "" {
		listen = cfg.Service.Listen
	}

	server := service.NewServer(service.ServerConfig{
		Store: store,
		Runner: service.RunnerConfig{
			AssistantRoleName: cfg.Chat.AssistantRole,
			UserRoleName:      cfg.Chat.UserRole,
			WithTaskSpecify:   cfg.Chat.WithTaskSpecify,
			WithTaskPlanner:   cfg.Chat.WithTaskPlanner,
			MaxExchanges:      cfg.Chat.MaxExchanges,
			WindowSize:        cfg.Chat.WindowSize,
			Provider:          provider,
			Model:             cfg.LLM.Model,
			Memory:            memStore,
			Retry:             buildRetry(cfg),
			Logger:            rc.logger,
		},
		Logger: rc.logger,
	})

	rc.logger.Info("listening", map[string]interface{}{"addr": listen})
	return http.ListenAndServe(listen, server)
}

// Run implements the version subcommand.
func (c *VersionCmd) Run(rc *runContext) error {
	fmt.Fprintf(os.Stdout, "duet %s\n", version)
	return nil
}
