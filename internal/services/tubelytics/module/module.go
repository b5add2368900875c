// Package module wires the tubelytics sessions into the API using modkit
package module

import (
	"net/http"

	"tubelytics/internal/adapters/youtube"
	"tubelytics/internal/modkit"
	"tubelytics/internal/modkit/httpkit"
	str "tubelytics/internal/platform/strings"
	"tubelytics/internal/services/tubelytics/domain"
	"tubelytics/internal/services/tubelytics/history"
	tubehttp "tubelytics/internal/services/tubelytics/http"
	"tubelytics/internal/services/tubelytics/service"
)

// Ports exposed by the tubelytics module
type Ports struct {
	Sessions *service.Service
	Provider domain.Provider
}

// Module implements the tubelytics module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	opts   Options

	mws       []func(http.Handler) http.Handler
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc   *service.Service
	ports Ports
}

// New constructs the tubelytics module. Invalid options panic at startup
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("tubelytics"), modkit.WithPrefix("/sessions")}, opts...)...)

	o := FromConfig(deps.Cfg)
	if err := o.Validate(); err != nil {
		deps.Log.Panic().Err(err).Msg("invalid tubelytics configuration")
	}

	var provider domain.Provider = youtube.NewClient(youtube.Options{
		BaseURL:    o.YouTubeBaseURL,
		APIKey:     o.YouTubeAPIKey,
		Timeout:    o.YouTubeTimeout,
		RPS:        o.YouTubeRPS,
		Burst:      o.YouTubeBurst,
		MaxRetries: o.YouTubeMaxRetries,
		RetryBase:  o.YouTubeRetryBase,
		EnrichTags: o.YouTubeEnrichTags,
		Metrics:    deps.Metrics,
	})
	if deps.Redis != nil {
		provider = youtube.NewCachedProvider(provider, deps.Redis, deps.Metrics, o.ChannelTTL)
	}
	return newWithProvider(deps, b, o, provider)
}

func newWithProvider(deps modkit.Deps, b modkit.Built, o Options, provider domain.Provider) *Module {
	svc := service.New(service.Deps{
		Provider: provider,
		History:  history.New(o.HistorySize),
		Metrics:  deps.Metrics,
		Config: service.Config{
			PollInterval:   o.PollInterval,
			ResultLimit:    o.ResultLimit,
			RecentVideos:   o.RecentVideos,
			StreamCapacity: o.StreamCapacity,
			FoldWords:      o.FoldWords,
		},
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		opts:      o,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
		ports:     Ports{Sessions: svc, Provider: provider},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		tubehttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}

	deps.Log.Info().
		Dur("poll_interval", o.PollInterval).
		Int("result_limit", o.ResultLimit).
		Int("stream_capacity", o.StreamCapacity).
		Bool("channel_cache", deps.Redis != nil).
		Msg("tubelytics module ready")
	return m
}

// MountRoutes mounts the JSON API under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.Prefix(), m.mws, func(rr httpkit.Router) {
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// MountSocket mounts GET /ws on r, which must not compress or time out
func (m *Module) MountSocket(r httpkit.Router) {
	tubehttp.RegisterSocket(r, m.svc, tubehttp.Options{AllowedOrigins: str.IfEmpty(m.opts.AllowedOrigins, []string{"*"})})
}

// Close ends every live session
func (m *Module) Close() { m.svc.CloseAll() }

// Name satisfies modkit.Module
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

var _ modkit.Module = (*Module)(nil)
