package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/history"
	"github.com/antoniostano/aria/internal/httpapi"
	"github.com/antoniostano/aria/internal/memory"
	"github.com/antoniostano/aria/internal/observability"
	"github.com/antoniostano/aria/internal/prompt"
	"github.com/antoniostano/aria/internal/provider"
	"github.com/antoniostano/aria/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	memProvider, err := memory.NewProvider(ctx, cfg.MemoryProviderMode, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory provider init failed: %v", err)
	}
	gateway := memory.NewGateway(memProvider, cfg.RecallTimeout)
	defer gateway.Close()
	log.Printf("memory provider: %s", gateway.ProviderName())

	adapter, err := provider.NewAdapter(provider.Config{
		Mode:        cfg.ProviderMode,
		HTTPURL:     cfg.ProviderHTTPURL,
		FallbackURL: cfg.ProviderFallbackURL,
	})
	if err != nil {
		log.Fatalf("provider adapter init failed: %v", err)
	}

	hist := history.NewStore(cfg.HistoryMaxTurns)
	builder := prompt.NewBuilder(hist, gateway, cfg.SystemPrompt,
		cfg.ContextRecentTurns, cfg.RecallLimit, cfg.ContextCharBudget)
	orchestrator := turn.NewOrchestrator(hist, gateway, builder, adapter,
		metrics, cfg.TurnTimeout, cfg.RememberTriggers)

	api := httpapi.New(cfg, orchestrator, hist, gateway, builder, metrics)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Let pending memory write-backs land before the provider closes.
	orchestrator.WaitBackground()

	log.Printf("shutdown complete")
}
