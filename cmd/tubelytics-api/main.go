package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tubelytics/internal/platform/config"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"
	phttp "tubelytics/internal/platform/net/http"
	"tubelytics/internal/platform/net/middleware"
	"tubelytics/internal/platform/store"

	"tubelytics/internal/services/api"

	"github.com/go-chi/chi/v5"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (TUBELYTICS_API_*)
	root := config.New()
	apiCfg := root.Prefix("TUBELYTICS_")
	rdsCfg := root.Prefix("REDIS_")

	// bring up logging early
	l := logger.Get()

	// redis is optional; without it every channel lookup goes to YouTube
	st, err := store.Open(ctx,
		store.Config{
			RDS: store.RedisConfig{
				Enabled:        rdsCfg.MayString("URL", "") != "",
				URL:            rdsCfg.MayString("URL", ""),
				ConnectRetries: rdsCfg.MayInt("CONNECT_RETRIES", 5),
				PingTimeout:    rdsCfg.MayDuration("PING_TIMEOUT", 0),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	m := metrics.New()

	// http server (reads TUBELYTICS_API_PORT)
	srv := phttp.NewServer(apiCfg, func(r *chi.Mux) {
		r.Use(middleware.Defaults()...)
		r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: apiCfg.MayDuration("SLOW_REQUEST", time.Second)}))
		r.Use(m.Middleware)
	})

	// mount our API
	sessions := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Metrics:        m,
			Logger:         l,
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	// hijacked websockets outlive http.Server.Shutdown, so end them explicitly
	defer sessions.Close()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
