// Package botservice boots the assistant: storage, messaging, extraction,
// the conversation engine, the HTTP surface and the background sweeps.
package botservice

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api"
	"github.com/taskivo/taskivo/internal/config"
	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/flow"
	"github.com/taskivo/taskivo/internal/health"
	"github.com/taskivo/taskivo/internal/logger"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/store/postgres"
	"github.com/taskivo/taskivo/internal/store/sqlite"
	"github.com/taskivo/taskivo/internal/sweeper"
	"github.com/taskivo/taskivo/internal/voice"
	"github.com/taskivo/taskivo/internal/wa"
)

// Run starts the assistant HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("taskivo")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	if err := wa.ValidateCatalog(); err != nil {
		log.Error().Err(err).Msg("Template catalog is inconsistent")
		return err
	}

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return err
	}

	deps := buildDependencies(cfg, st, log)

	router := api.NewRouter(api.RouterDeps{
		Engine:      deps.engine,
		Users:       deps.users,
		Tasks:       deps.tasks,
		Meetings:    deps.meetings,
		Delegations: deps.delegations,
		Reminders:   deps.reminders,
		Media:       api.NewTwilioMediaFetcher(cfg.TwilioAccountSID, cfg.TwilioAuthToken),
		CountryCode: cfg.DefaultCountryCode,
		Logger:      log,
	})

	startHealthCheckers(ctx, st, log)

	// Background reminder sweep and weekly summary
	go deps.sweep.Run(ctx, cfg.SweepInterval)
	go deps.weekly.Run(ctx)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// openStore opens the configured storage backend. Postgres gets its schema
// bootstrapped on startup; sqlite does the same inside New.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if err := postgres.Bootstrap(ctx, cfg.PostgresDSN); err != nil {
			return nil, err
		}
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", "postgres").Msg("store opened")
		return postgres.NewWithDB(db), nil
	default:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store opened")
		return st, nil
	}
}

type dependencies struct {
	users       *services.Users
	tasks       *services.Tasks
	meetings    *services.Meetings
	delegations *services.Delegations
	reminders   *services.Reminders
	engine      *flow.Engine
	sweep       *sweeper.Sweeper
	weekly      *sweeper.WeeklySummary
}

// buildDependencies wires services, the outbound sender, extraction,
// transcription and the conversation engine. Missing Twilio or OpenAI
// credentials degrade to the logging sender and deterministic fallbacks so
// local development needs no secrets.
func buildDependencies(cfg *config.Config, st store.Store, log zerolog.Logger) *dependencies {
	var sender wa.Sender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		cache := wa.NewTemplateCache(cfg.TwilioAccountSID, cfg.TwilioAuthToken, log)
		sender = wa.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, cache, log)
	} else {
		log.Warn().Msg("Twilio credentials missing; outbound messages are logged only")
		sender = &wa.Noop{Log: log}
	}

	var ai *extract.OpenAIClient
	var transcriber voice.Transcriber = voice.Mock{}
	if cfg.OpenAIAPIKey != "" {
		ai = extract.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ChatModel)
		transcriber = voice.NewWhisper(cfg.OpenAIAPIKey, cfg.WhisperModel, cfg.TwilioAccountSID, cfg.TwilioAuthToken, log)
	} else {
		log.Warn().Msg("OpenAI key missing; using deterministic extraction and mock transcription")
	}

	users := services.NewUsers(st, log, cfg.DefaultLanguage, cfg.DefaultTimeZone)
	tasks := services.NewTasks(st, log)
	meetings := services.NewMeetings(st, log)
	delegations := services.NewDelegations(st, log)
	reminders := services.NewReminders(st, log)
	msgLog := services.NewMessageLog(st, log)

	engine := flow.New(flow.Deps{
		Store:       st,
		Users:       users,
		Tasks:       tasks,
		Meetings:    meetings,
		Delegations: delegations,
		Reminders:   reminders,
		MessageLog:  msgLog,
		Sender:      sender,
		Extractor:   extract.New(ai, log),
		Transcriber: transcriber,
		CountryCode: cfg.DefaultCountryCode,
		Logger:      log,
	})

	return &dependencies{
		users:       users,
		tasks:       tasks,
		meetings:    meetings,
		delegations: delegations,
		reminders:   reminders,
		engine:      engine,
		sweep:       sweeper.New(reminders, msgLog, sender, log),
		weekly:      sweeper.NewWeeklySummary(st, tasks, sender, log, cfg.WeeklySummaryDay, cfg.WeeklySummaryHr),
	}
}

// startHealthCheckers starts the store checker and the service aggregator,
// then binds the health endpoint to the aggregate.
func startHealthCheckers(ctx context.Context, st store.Store, log zerolog.Logger) {
	storeChecker := store.NewStoreHealthChecker(st, log, 5*time.Second)
	go storeChecker.Start(ctx, 30*time.Second)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, 30*time.Second)
	api.BindServiceHealth(svcHealth.IsHealthy)
}
