package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Arnaud58/LlamaKeeper/pkg/autonomy"
	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/events"
	"github.com/Arnaud58/LlamaKeeper/pkg/llm"
	"github.com/Arnaud58/LlamaKeeper/pkg/llm/ollama"
	"github.com/Arnaud58/LlamaKeeper/pkg/llm/openai"
	"github.com/Arnaud58/LlamaKeeper/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := core.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("init memory client: %w", err)
	}
	defer client.Close()

	bus := events.NewBus()
	client.AttachEventBus(bus)

	// The server still runs without a working LLM; only the generation
	// routes are disabled.
	var autonomySystem *autonomy.System
	provider, err := newProvider(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), generation disabled\n", err)
	} else {
		defer provider.Close()
		autonomySystem = autonomy.NewSystem(provider, client)
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	srv := server.New(client, autonomySystem, bus, VersionString())

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8000"
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "llamakeeper serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  storage: %s\n", cfg.Storage.Provider)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// newProvider builds the configured LLM provider.
func newProvider(cfg core.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewClient(&ollama.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "openai":
		return openai.NewClient(&openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
