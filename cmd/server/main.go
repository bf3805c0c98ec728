// Command server runs the LEMtool backend HTTP API.
//
// It loads configuration from the environment (.env supported in dev),
// configures structured logging and OpenTelemetry tracing, opens the SQLite
// database, wires the headless-browser capturer and the AI analysis client
// when configured, and serves the REST API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lemtool/lem-backend/internal/ai"
	"github.com/lemtool/lem-backend/internal/config"
	httpapi "github.com/lemtool/lem-backend/internal/http"
	"github.com/lemtool/lem-backend/internal/observability"
	"github.com/lemtool/lem-backend/internal/repo"
	"github.com/lemtool/lem-backend/internal/screenshot"
	"github.com/lemtool/lem-backend/internal/services"
	"github.com/lemtool/lem-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title           LEMtool Backend API
// @version         1.0
// @description     Emotion-annotation backend: URL analysis, participant test sessions, reports, and PDF export.
// @BasePath        /api/v1
// @schemes         http https
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting lem-backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database failed")
	}

	// Screenshot capture (optional)
	var shots services.Screenshotter
	if cfg.Screenshot.Enabled {
		if err := os.MkdirAll(cfg.Screenshot.Dir, 0o750); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.Screenshot.Dir).Msg("create screenshot dir failed")
		}
		capturer := screenshot.NewCapturer(cfg.Screenshot.ControlURL, cfg.Screenshot.NavTimeout)
		defer func() {
			if err := capturer.Close(); err != nil {
				log.Warn().Err(err).Msg("capturer close")
			}
		}()
		shots = capturer
	}

	// AI analysis (optional; without a key every project is a demo)
	var analyzer services.Analyzer
	if cfg.AI.APIKey != "" {
		opts := []ai.Option{ai.WithHTTPClient(&http.Client{Timeout: cfg.AI.Timeout})}
		if cfg.AI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.AI.BaseURL))
		}
		if cfg.AI.Model != "" {
			opts = append(opts, ai.WithModel(cfg.AI.Model))
		}
		analyzer = ai.NewClient(cfg.AI.APIKey, opts...)
	} else {
		log.Warn().Msg("AI_API_KEY not set; serving demo analyses only")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, analyzer, shots, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
