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

	"github.com/prometheus/client_golang/prometheus"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/completion"
	"parentdoctor/backend/internal/config"
	"parentdoctor/backend/internal/observability"
	"parentdoctor/backend/internal/server"
	"parentdoctor/backend/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	stores, err := store.Open(ctx, store.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("store setup failed: %v", err)
	}
	defer stores.Close()
	log.Printf("profile store ready backend=%s", stores.Backend)

	var completer chat.Completer
	if client := completion.NewOpenAIClient(cfg); client.Configured() {
		completer = client
	} else {
		log.Printf("OPENAI_API_KEY not set; replies use fallback templates")
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer, cfg.MetricsNamespace)
	engine := chat.NewOrchestrator(chat.Dependencies{
		Sessions:          chat.NewMemorySessionStore(),
		Profiles:          stores.Profiles,
		Doctors:           stores.Doctors,
		Completer:         completer,
		Observer:          metrics,
		Location:          cfg.Location(),
		ContextTurns:      cfg.ChatContextTurns,
		CompletionTimeout: cfg.AITimeout(),
		DoctorLimit:       cfg.DoctorRecommendLimit,
	})

	app := server.New(cfg, engine, stores, metrics)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("parentdoctor api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
