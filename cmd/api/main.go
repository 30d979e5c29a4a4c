// Package main is the entry point for the API server.
package main

import (
	"context"
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

	"github.com/guided-ai/interview-platform/internal/audit"
	"github.com/guided-ai/interview-platform/internal/config"
	"github.com/guided-ai/interview-platform/internal/handler"
	"github.com/guided-ai/interview-platform/internal/middleware"
	"github.com/guided-ai/interview-platform/internal/provider"
	"github.com/guided-ai/interview-platform/internal/service"
	"github.com/guided-ai/interview-platform/internal/store"
	"github.com/guided-ai/interview-platform/internal/template"
	"github.com/guided-ai/interview-platform/pkg/logger"
	"github.com/guided-ai/interview-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "interview-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Session store
	sessionStore, err := store.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize session store", zap.Error(err))
		os.Exit(1)
	}
	defer sessionStore.Close()
	log.Info("session store ready", zap.String("driver", cfg.SessionStore))

	// Audit stream (optional)
	var auditClient *audit.Client
	var auditPublisher *audit.Publisher
	if cfg.AuditEnabled {
		auditClient, err = audit.Connect(ctx, audit.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer auditClient.Close()

		auditPublisher = audit.NewPublisher(auditClient, log)
		if err := auditPublisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure audit stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Template registry: local library seeded from disk or built-ins, plus an
	// optional remote registry behind it.
	library := template.NewLibrary(log)
	if cfg.TemplateDir != "" {
		if err := library.LoadDir(cfg.TemplateDir); err != nil {
			log.Warn("failed to load template directory",
				zap.String("dir", cfg.TemplateDir),
				zap.Error(err))
		}
	}
	if library.Len() == 0 {
		for _, t := range template.SeedTemplates() {
			seeded := t
			if err := library.Add(&seeded); err != nil {
				log.Warn("failed to seed template", zap.String("name", t.Name), zap.Error(err))
			}
		}
		log.Info("seeded built-in templates", zap.Int("count", library.Len()))
	}

	var registry template.Registry = library
	if cfg.TemplateRegistryURL != "" {
		registry = template.NewChain(library, template.NewRemoteRegistry(cfg.TemplateRegistryURL))
	}

	// Completion provider
	providerClient, err := buildProvider(cfg)
	if err != nil {
		log.Error("failed to initialize completion provider", zap.Error(err))
		os.Exit(1)
	}
	log.Info("completion provider ready", zap.String("provider", providerClient.Name()))

	var fallback provider.Client
	if cfg.FallbackEnabled {
		fallback = provider.NewDemoClient()
	}

	// Services
	sessionSvc := service.NewSessionService(registry, sessionStore, auditPublisher, log)
	turnSvc := service.NewTurnService(sessionSvc, providerClient, fallback, auditPublisher, log,
		cfg.HistoryWindow, provider.Options{
			Model:       cfg.DefaultModel,
			Temperature: cfg.DefaultTemperature,
			MaxTokens:   cfg.DefaultMaxTokens,
		})

	// Handlers
	healthHandler := handler.NewHealthHandler(auditClient)
	templateHandler := handler.NewTemplateHandler(registry, library, log)
	sessionHandler := handler.NewSessionHandler(sessionSvc, turnSvc, log)
	streamHandler := handler.NewStreamHandler(turnSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Templates
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templateHandler.List)
			r.Post("/", templateHandler.Create)
			r.Get("/{id}", templateHandler.Get)
		})

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/reset", sessionHandler.Reset)
				r.Get("/messages", sessionHandler.Messages)

				// Turn routing holds a provider call per request.
				r.Group(func(r chi.Router) {
					r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
					r.Post("/input", sessionHandler.SendInput)
					r.Post("/stream", streamHandler.StreamInput)
				})
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// buildProvider selects the completion provider from configuration.
func buildProvider(cfg *config.Config) (provider.Client, error) {
	switch cfg.Provider {
	case "chat-api":
		return provider.NewChatAPIClient(cfg.ChatAPIURL, cfg.ChatAPITimeout), nil
	case "openai":
		return provider.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.DefaultModel)
	case "anthropic":
		return provider.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.DefaultModel)
	case "demo":
		return provider.NewDemoClient(), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
