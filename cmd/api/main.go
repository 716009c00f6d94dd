package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/api"
	"github.com/safar/fish-segments/internal/config"
	"github.com/safar/fish-segments/internal/database"
	"github.com/safar/fish-segments/internal/logging"
	"github.com/safar/fish-segments/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fish-segments: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "fish_segments"),
	)

	opts := allocation.DefaultOptions()
	opts.HoldDuration = cfg.Allocation.HoldDuration
	opts.Logger = log.With().Str("component", "allocation").Logger()
	opts.Metrics = allocation.NewMetrics(reg)
	svc := allocation.NewService(store.NewPostgres(db, cfg.Allocation.CommitMaxRetries), opts)

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.NewHandler(svc, api.Options{
			Logger:     log.With().Str("component", "http").Logger(),
			Gatherer:   reg,
			Ping:       db.PingContext,
			AdminToken: cfg.Server.AdminToken,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Server.Port).
			Dur("hold_duration", svc.HoldDuration()).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
