package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rankingqueue "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/queue"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func newWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "work queued ranking jobs and serve /metrics and /healthz",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "job-timeout", Value: 10 * time.Minute, Usage: "upper bound on one ranking pass"},
		},
		Action: runWorker,
	}
}

func runWorker(c *cli.Context) error {
	ctx, rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := rt.obs.Logger
	queue, err := rankingqueue.NewService(ctx, rt.db, logger, rt.cfg.Postgres.DSN, rt.obs.Metrics, rt.Ranking,
		rankingqueue.Options{
			MaxWorkers: rt.cfg.Ranking.Parallelism,
			JobTimeout: c.Duration("job-timeout"),
		},
	)
	if err != nil {
		return err
	}
	defer queue.Close()

	if err := queue.Start(ctx); err != nil {
		return err
	}

	var srv *http.Server
	if addr := rt.cfg.Observability.MetricsAddress; addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           newOpsRouter(rt.obs.Registry, queue),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving metrics", attr.String("address", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", attr.Error(err))
				stop()
			}
		}()
	}

	logger.Info("Waiting for shutdown signal")
	<-ctx.Done()
	logger.Info("Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server forced to shut down", attr.Error(err))
		}
	}
	return queue.Stop(shutdownCtx)
}

// newOpsRouter serves Prometheus metrics and a health check backed by the
// queue tables.
func newOpsRouter(reg *prometheus.Registry, queue rankingqueue.QueueService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := queue.HealthCheck(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
