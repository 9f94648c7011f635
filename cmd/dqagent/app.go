package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/dqagent/config"
	"github.com/c360studio/dqagent/intent"
	"github.com/c360studio/dqagent/llm"
	"github.com/c360studio/dqagent/nl2sql"
	"github.com/c360studio/dqagent/orchestrator"
	"github.com/c360studio/dqagent/rule"
	rulememory "github.com/c360studio/dqagent/rule/memory"
	rulesqlite "github.com/c360studio/dqagent/rule/sqlite"
	"github.com/c360studio/dqagent/server"
	"github.com/c360studio/dqagent/session"
	"github.com/c360studio/dqagent/warehouse"
	warehouserest "github.com/c360studio/dqagent/warehouse/rest"
)

// App wires together the store, collaborators, and orchestrator.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store  rule.Store
	server *server.Server
}

// NewApp builds the full component graph from configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize rule store: %w", err)
	}

	queryService := warehouserest.New(cfg.Warehouse.QueryServiceURL,
		warehouserest.WithLogger(logger))

	llmClient := llm.NewClient(llm.Endpoint{
		Provider: cfg.Model.Provider,
		URL:      cfg.Model.Endpoint,
		Model:    cfg.Model.Model,
	},
		llm.WithLogger(logger),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
	)

	// Strategy is fixed at construction; never re-selected per call.
	generator, err := nl2sql.New(nl2sql.Method(cfg.NL2SQL.Method), llmClient, nl2sql.Config{
		Temperature: cfg.Model.Temperature,
		MaxTokens:   nl2sql.DefaultConfig().MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	router := intent.NewLLMRouter(llmClient, intent.WithLogger(logger))

	target := warehouse.Target{
		ProjectID: cfg.Warehouse.ProjectID,
		DatasetID: cfg.Warehouse.DatasetID,
	}
	sessions := session.NewManager(queryService, target)

	orch := orchestrator.New(
		router,
		generator,
		queryService,
		queryService,
		store,
		sessions,
		orchestrator.Config{MaxGenerateAttempts: cfg.Workflow.MaxGenerateAttempts},
		orchestrator.WithLogger(logger),
	)

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		server: server.New(cfg.Server.Addr, orch, sessions, logger),
	}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case sig := <-sigCh:
		a.logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("HTTP shutdown did not complete cleanly", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Rule store close failed", "error", err)
	}
	return nil
}

// newStore constructs the configured rule store backend.
func newStore(cfg *config.Config) (rule.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return rulesqlite.New(cfg.Store.Path)
	case "memory":
		return rulememory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}
