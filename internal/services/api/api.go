// Package api provides the HTTP API for the application
package api

import (
	"tubelytics/internal/platform/config"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"
	phttp "tubelytics/internal/platform/net/http"
	"tubelytics/internal/platform/store"

	"tubelytics/internal/modkit"
	"tubelytics/internal/modkit/httpkit"

	metahttp "tubelytics/internal/services/api/meta/http"
	metamod "tubelytics/internal/services/api/meta/module"
	tubemod "tubelytics/internal/services/tubelytics/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store     // optional, enables the redis channel cache
	Metrics        *metrics.Metrics // optional, enables /metrics
	Logger         *logger.Logger
	EnableProfiler bool
}

// Mount mounts the API service onto the given router. The websocket lives at /ws outside
// the JSON stack, everything else under /api/v1. The returned module owns live sessions
func Mount(r phttp.Router, opt Options) *tubemod.Module {
	log := opt.Logger
	if log == nil {
		log = logger.Get()
	}

	// shared deps for modules
	deps := modkit.Deps{
		Log:     *log,
		Cfg:     opt.Config,
		Metrics: opt.Metrics,
	}
	var ready metahttp.Pinger
	if opt.Store.Enabled() {
		deps.Redis = opt.Store.RDS
		ready = opt.Store
	}

	sessions := tubemod.New(deps)
	live := sessions.Ports().(tubemod.Ports).Sessions

	mods := []modkit.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Ports{Store: ready, Sessions: live.Live})),
		sessions,
	}

	sessions.MountSocket(r)

	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})

	return sessions
}
