// Command server runs the WhatsApp sales assistant: it receives WAHA webhook
// deliveries, turns questions into catalog queries against the retail
// database, and sends the composed answers back through the gateway.
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

	"github.com/varejolabs/salesbot/internal/config"
	httpapi "github.com/varejolabs/salesbot/internal/http"
	"github.com/varejolabs/salesbot/internal/intake"
	"github.com/varejolabs/salesbot/internal/messenger"
	"github.com/varejolabs/salesbot/internal/nlu"
	"github.com/varejolabs/salesbot/internal/observability"
	"github.com/varejolabs/salesbot/internal/orchestrator"
	"github.com/varejolabs/salesbot/internal/repo"
	"github.com/varejolabs/salesbot/internal/resolver"
	"github.com/varejolabs/salesbot/internal/session"
	"github.com/varejolabs/salesbot/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	sessions := session.New(
		session.WithTTL(cfg.Session.TTL),
		session.WithSweepEvery(cfg.Session.SweepEvery),
		session.WithMaxTurns(cfg.Session.MaxTurns),
	)
	sessions.Start()
	observability.RegisterSessionGauge(sessions.Len)

	nluClient := nlu.NewClient(cfg.NLU.BaseURL, cfg.NLU.Timeout, cfg.NLU.MaxRetries)
	waha := messenger.NewClient(cfg.WAHA.BaseURL, cfg.WAHA.Session, cfg.WAHA.APIKey, cfg.WAHA.Timeout)
	exec := &repo.Executor{DB: db}
	customers := &resolver.Resolver{Exec: exec}

	pipeline, err := orchestrator.New(nluClient, nluClient, customers, exec)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline construction failed")
	}

	dedupe := &repo.DedupStore{DB: db}
	processor := intake.NewProcessor(sessions, dedupe, pipeline, waha, cfg.Pipeline.MaxInflight, cfg.Pipeline.Timeout)

	go purgeDedupLoop(ctx, dedupe, cfg.DedupTTL)

	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		Processor: processor,
		Sessions:  sessions,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight messages deliver their replies before tearing the rest down.
	processor.Wait()
	sessions.Stop()

	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// purgeDedupLoop trims old processed-message records so the dedup table does
// not grow without bound. Runs until the root context is canceled.
func purgeDedupLoop(ctx context.Context, store *repo.DedupStore, ttl time.Duration) {
	every := ttl / 4
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeBefore(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("dedup purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("dedup purge")
			}
		}
	}
}
