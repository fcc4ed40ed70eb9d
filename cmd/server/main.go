package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skripsiforge/internal/api"
	"skripsiforge/internal/config"
	"skripsiforge/internal/enhance"
	"skripsiforge/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The collaborator is optional: without a key the pipeline classifies
	// rule-based only and leaves missing front matter as blank shells.
	var client *enhance.Client
	if cfg.OpenRouterAPIKey != "" {
		// Per-call bounds come from contexts; the HTTP client carries the
		// ceiling, which is the longer of the two stage timeouts.
		timeout := cfg.ClassifyTimeout
		if cfg.SynthesisTimeout > timeout {
			timeout = cfg.SynthesisTimeout
		}
		client = enhance.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.ClassifyModel, cfg.SynthesisModel, timeout)
	} else {
		log.Warn("OPENROUTER_API_KEY not set, classification and synthesis disabled")
	}

	orch := pipeline.NewOrchestrator(cfg, client, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if client != nil {
			client.Close()
		}
	}()

	log.Info("starting skripsiforge", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
