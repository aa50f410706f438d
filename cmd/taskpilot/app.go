package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/rahul/taskpilot/internal/actions"
	"github.com/rahul/taskpilot/internal/agent"
	"github.com/rahul/taskpilot/internal/governance"
	"github.com/rahul/taskpilot/internal/observability"
	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// app holds everything a command needs to run tasks.
type app struct {
	cfg        *config.Config
	logger     *observability.Logger
	db         *store.Store
	schedules  *store.ScheduleStore
	supervisor *agent.Supervisor
	browser    *actions.BrowserAction
}

// loadConfig reads the config file; a missing default file is not an error.
func loadConfig() (*config.Config, error) {
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		path = ""
	}
	return config.Load(path)
}

func newApp(cfg *config.Config, logger *observability.Logger) (*app, error) {
	llm, jsonMode, err := newModel(cfg)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Memory.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.App.Workspace != "" {
		if err := os.MkdirAll(cfg.App.Workspace, 0755); err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		schedules: store.NewScheduleStore(db),
		browser:   actions.NewBrowserAction(headless),
	}

	registry, err := a.buildRegistry()
	if err != nil {
		a.Close()
		return nil, err
	}

	workspace := store.NewWorkspace(db)
	prompts := agent.NewPromptManager(cfg.App.Prompts)
	factory := func(description string, opts ...agent.Option) *agent.Agent {
		base := []agent.Option{
			agent.WithPrompts(prompts),
			agent.WithWorkspace(workspace),
			agent.WithLogger(logger),
		}
		if jsonMode {
			base = append(base, agent.WithJSONMode())
		}
		return agent.New(description, llm, registry, append(base, opts...)...)
	}

	steps := cfg.App.MaxSteps
	if maxSteps > 0 {
		steps = maxSteps
	}
	a.supervisor = agent.NewSupervisor(factory,
		agent.WithRecorder(store.NewStepLog(db)),
		agent.WithMaxSteps(steps),
	)
	return a, nil
}

func (a *app) buildRegistry() (*actions.Registry, error) {
	list := []actions.Action{
		actions.NewMessageAction(),
		actions.NewAskAction(),
	}

	searchAction, err := actions.NewSearchAction()
	if err != nil {
		log.Printf("Warning: Failed to initialize search action: %v", err)
	} else {
		list = append(list, searchAction)
	}

	shell := actions.NewShellAction()
	shell.Dir = a.cfg.App.Workspace

	list = append(list,
		actions.NewScraperAction(),
		a.browser,
		actions.NewWorkspaceAction(),
		shell,
		actions.NewScheduleAction(a.schedules),
	)

	gov, err := newPolicy(a.cfg.Policy, shell.Name(), a.browser.Name())
	if err != nil {
		return nil, err
	}

	return actions.NewRegistry(governance.GuardAll(list, gov, a.logger)...)
}

// newPolicy refuses destructive commands for the host actions and adds the
// configured rules.
func newPolicy(cfg config.PolicyConfig, hostActions ...string) (*governance.RuleSet, error) {
	gov := governance.DefaultRuleSet(hostActions...)
	for _, name := range cfg.DeniedActions {
		gov.DenyAction(name)
	}
	for action, patterns := range cfg.DeniedPatterns {
		if action == "*" {
			action = ""
		}
		for _, pattern := range patterns {
			if err := gov.DenyArgumentsFor(action, pattern); err != nil {
				return nil, fmt.Errorf("policy: %w", err)
			}
		}
	}
	return gov, nil
}

func (a *app) Close() {
	a.browser.Close()
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing store: %v", err)
	}
	a.logger.Sync()
}

// newModel builds the default enabled provider.
func newModel(cfg *config.Config) (llms.Model, bool, error) {
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		return nil, false, errors.New("no enabled provider found in config")
	}

	var llm llms.Model
	var err error
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(pCfg.Model)}
		if pCfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(pCfg.BaseURL))
		}
		if pCfg.JSONMode {
			opts = append(opts, ollama.WithFormat("json"))
		}
		llm, err = ollama.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(pCfg.APIKey),
			anthropic.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = anthropic.New(opts...)
	default:
		return nil, false, fmt.Errorf("provider %s is not supported", pName)
	}
	if err != nil {
		return nil, false, fmt.Errorf("init provider %s: %w", pName, err)
	}
	log.Printf("Using provider %s (%s)", pName, pCfg.Model)
	return llm, pCfg.JSONMode, nil
}

// newLogger builds the structured event logger. Quiet mode keeps the LLM
// transcript file but drops console events.
func newLogger(cfg *config.Config, quiet bool) (*observability.Logger, error) {
	debug := verbose || cfg.Debug()
	if quiet && !verbose {
		return observability.NewLoggerWith(zap.NewNop(), cfg.Log.LLMFile), nil
	}
	output := "stdout"
	if quiet {
		output = "stderr"
	}
	logger, err := observability.NewLogger(observability.Options{
		Debug:      debug,
		LLMLogPath: cfg.Log.LLMFile,
		Output:     output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
