// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"snowdemo/cli/internal/agents"
	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/connparams"
	"snowdemo/cli/internal/graph"
	"snowdemo/cli/internal/keychain"
	"snowdemo/cli/internal/llm"
	"snowdemo/cli/internal/logging"
	"snowdemo/cli/internal/warehouse"
)

// app is the per-invocation wiring shared by subcommands: configuration read
// once at start, the process logger and the connection resolver.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	resolver *connparams.Resolver
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.NewLogger(level)
	slog.SetDefault(logger)

	r := connparams.NewResolver(cfg.Warehouse)
	r.Logger = logger
	// SNOWFLAKE_PRIVATE_KEY_PASSPHRASE wins; the keychain entry is the fallback
	// for encrypted keys.
	r.Passphrase = keychain.Passphrase

	return &app{cfg: cfg, logger: logger, resolver: r}, nil
}

func (a *app) acquirer() *warehouse.Acquirer {
	return &warehouse.Acquirer{Resolver: a.resolver, Logger: a.logger}
}

// cortex builds the Cortex chat model over sessions handed out by acquire.
func (a *app) cortex(acquire llm.AcquireFunc) *llm.Cortex {
	c := a.cfg.Chat
	return &llm.Cortex{
		Model:     c.Model,
		Options:   llm.Options{Temperature: c.Temperature, MaxTokens: c.MaxTokens},
		Warehouse: c.CortexWarehouse,
		Acquire:   acquire,
		Logger:    a.logger,
	}
}

// callSessions hands the model a fresh session for every call, closed when
// the call returns.
func callSessions(acq *warehouse.Acquirer) llm.AcquireFunc {
	return func(ctx context.Context) (llm.Completer, func(), error) {
		s, release, err := acq.Borrow(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, release, nil
	}
}

// graphBuilder returns the function that compiles the chat graph for the
// configured agent.
func (a *app) graphBuilder(agent string, acq *warehouse.Acquirer) func() (*graph.Graph, error) {
	return func() (*graph.Graph, error) {
		switch agent {
		case "test":
			return agents.Build(agents.Static(agents.StaticReply))
		case "cortex", "":
			return agents.Build(agents.Assistant(a.cortex(callSessions(acq)), a.cfg.Chat.SystemPrompt))
		default:
			return nil, fmt.Errorf("unknown agent %q (use cortex or test)", agent)
		}
	}
}
