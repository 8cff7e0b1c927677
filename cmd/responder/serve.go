package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/tbourn/go-feedback-responder/internal/config"
	"github.com/tbourn/go-feedback-responder/internal/generation"
	httpapi "github.com/tbourn/go-feedback-responder/internal/http"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/observability"
	"github.com/tbourn/go-feedback-responder/internal/pipeline"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
	"github.com/tbourn/go-feedback-responder/internal/sysutil"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the polling pipeline and the review API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe wires the whole application: config, logging, telemetry, storage,
// marketplace gateways, the background pipeline, and the HTTP server. It
// blocks until SIGINT/SIGTERM or a fatal server error.
func runServe() error {
	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// Provision configured accounts so polling starts without manual setup.
	accounts := services.NewAccountService(db)
	for _, spec := range cfg.WBAccounts {
		if _, err := accounts.Provision(ctx, spec.Name, marketplace.Wildberries, spec.Token); err != nil {
			return fmt.Errorf("provisioning account %q: %w", spec.Name, err)
		}
	}
	for _, spec := range cfg.YMAccounts {
		if _, err := accounts.Provision(ctx, spec.Name, marketplace.YandexMarket, spec.Token); err != nil {
			return fmt.Errorf("provisioning account %q: %w", spec.Name, err)
		}
	}

	gws := marketplace.Registry{
		marketplace.Wildberries:  marketplace.NewWildberriesClient(),
		marketplace.YandexMarket: marketplace.NewYandexClient(),
	}

	gen := generation.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	gen.HTTP.Timeout = cfg.OpenAI.Timeout

	ingest := services.NewIngestService(db, gws)
	ingest.ProductTTL = cfg.Pipeline.ProductTTL

	route := services.NewRouteService(db)

	draft := services.NewDraftService(db, gen)
	draft.MaxAttempts = cfg.Pipeline.MaxAttempts
	draft.InitialBackoff = cfg.Pipeline.InitialBackoff
	draft.MaxDraftRunes = cfg.Prompt.MaxDraftRunes
	draft.Assembler.Template = cfg.Prompt.Template
	draft.Assembler.System = cfg.Prompt.System
	draft.Assembler.TokenBudget = cfg.Prompt.TokenBudget
	draft.Assembler.MaxExamples = cfg.Prompt.MaxExamples
	if tag, err := language.Parse(cfg.Prompt.NameLocale); err == nil {
		draft.Assembler.NameLocale = tag
	}

	dispatch := services.NewDispatchService(db, gws)
	dispatch.MaxAttempts = cfg.Pipeline.MaxAttempts
	dispatch.InitialBackoff = cfg.Pipeline.InitialBackoff

	orch := pipeline.NewOrchestrator(db, ingest, route, draft, dispatch)
	orch.Interval = cfg.Pipeline.PollInterval
	orch.StepBatch = cfg.Pipeline.StepBatch
	go orch.Run(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	// Start the server in a goroutine so we can wait on the signal context.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
