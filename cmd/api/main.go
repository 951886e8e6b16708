package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	server "campground_ingest/internal/adapters/http_server"
	"campground_ingest/internal/adapters/observability"
	"campground_ingest/internal/app"
	"campground_ingest/internal/bootstrap"
	"campground_ingest/internal/domain"
	"campground_ingest/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := shared.Context()
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn().Err(err).Msg("close dependencies")
		}
	}()

	var sched *app.Scheduler
	if cfg.ScheduleEnabled {
		base, err := bootstrap.BaseRequest(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid ingestion settings")
		}
		sched, err = app.StartScheduler(cfg.Schedule, func(ctx context.Context) {
			// RunOnce logs and counts its own failures
			_, _ = deps.Ingest.RunOnce(ctx, domain.TriggerScheduled, base)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler start failed")
		}
		if cfg.RunOnStart {
			sched.RunNow()
		}
	}

	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: deps.Query, Ingest: deps.Ingest})

	httpSrv := newHTTPServer(ctx, cfg.HTTPAddr, srv.Mux())
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("scheduler stop")
		}
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}

// newHTTPServer derives every request context from ctx, so on-demand runs
// stop with the shutdown signal instead of at the Shutdown deadline.
func newHTTPServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
