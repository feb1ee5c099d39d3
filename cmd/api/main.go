// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/config"
	"github.com/chadn/ai-chatbot-meetings/internal/handler"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	natsclient "github.com/chadn/ai-chatbot-meetings/internal/nats"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server",
		zap.String("model", cfg.ModelName),
		zap.String("timezone", cfg.Timezone),
	)

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "ai-chatbot-meetings", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Scheduling events are optional; without NATS they are dropped.
	var (
		publisher   service.EventPublisher = service.NopPublisher{}
		eventReader handler.EventReader
		readyChecks = map[string]handler.Pinger{}
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		events := natsclient.NewEventPublisher(natsClient, cfg.EventsMaxAge)
		if err := events.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		publisher = events
		eventReader = events
		readyChecks["nats"] = natsClient
	}

	factory := llm.NewOpenAIFactory(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, log)
	sessionSvc := service.NewSessionService(cfg.SessionConfig(), factory, publisher, log)

	healthHandler := handler.NewHealthHandler(readyChecks)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	messageHandler := handler.NewMessageHandler(sessionSvc, log)
	streamHandler := handler.NewStreamHandler(sessionSvc, log)
	transcriptHandler := handler.NewTranscriptHandler(sessionSvc, log)
	eventHandler := handler.NewEventHandler(sessionSvc, eventReader, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Put("/model", sessionHandler.SetModel)
				r.Post("/reset", sessionHandler.Reset)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Post("/stream", streamHandler.StreamWithMessage)

				r.Get("/transcript", transcriptHandler.Export)
				r.Put("/transcript", transcriptHandler.Import)

				r.Get("/events", eventHandler.List)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
