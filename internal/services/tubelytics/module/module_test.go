package module

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tubelytics/internal/adapters/youtube"
	"tubelytics/internal/modkit"
	"tubelytics/internal/platform/config"
	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"
	phttp "tubelytics/internal/platform/net/http"
	kit "tubelytics/internal/platform/testkit"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func TestFromConfigDefaults(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "k")
	o := FromConfig(config.New())

	if o.PollInterval != 40*time.Second || o.ResultLimit != 10 || o.StreamCapacity != 10 || o.HistorySize != 10 {
		t.Fatalf("unexpected defaults: %+v", o)
	}
	if o.YouTubeBaseURL != "https://www.googleapis.com/youtube/v3" {
		t.Fatalf("base url = %q", o.YouTubeBaseURL)
	}
	if !o.YouTubeEnrichTags || o.FoldWords {
		t.Fatalf("flags = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromConfigOverrides(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "k")
	t.Setenv("TUBELYTICS_POLL_INTERVAL", "5s")
	t.Setenv("TUBELYTICS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("TUBELYTICS_WORDSTATS_FOLD", "true")
	t.Setenv("REDIS_CHANNEL_TTL", "1m")
	o := FromConfig(config.New())

	if o.PollInterval != 5*time.Second || !o.FoldWords || o.ChannelTTL != time.Minute {
		t.Fatalf("overrides not applied: %+v", o)
	}
	if len(o.AllowedOrigins) != 2 || o.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %q", o.AllowedOrigins)
	}
}

func TestValidateNamesEnvKeys(t *testing.T) {
	o := FromConfig(config.New())
	o.YouTubeAPIKey = ""
	o.ResultLimit = 0
	o.YouTubeRPS = 0

	err := o.Validate()
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
	for _, key := range []string{"YOUTUBE_API_KEY", "TUBELYTICS_RESULT_LIMIT", "YOUTUBE_RPS"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")
	kit.MustPanic(t, func() { New(modkit.Deps{Log: *logger.Get(), Cfg: config.New()}) })
}

func newYouTubeStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			_, _ = w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Go"},"statistics":{"subscriberCount":"3"}}]}`))
		default:
			_, _ = w.Write([]byte(`{"items":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewMountsRoutesAndCaches(t *testing.T) {
	yt := newYouTubeStub(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	t.Setenv("YOUTUBE_API_KEY", "k")
	t.Setenv("YOUTUBE_BASE_URL", yt.URL)
	m := New(modkit.Deps{Log: *logger.Get(), Cfg: config.New(), Metrics: metrics.New(), Redis: rdb})
	t.Cleanup(m.Close)

	if m.Name() != "tubelytics" || m.Prefix() != "/sessions" {
		t.Fatalf("name/prefix = %q %q", m.Name(), m.Prefix())
	}
	ports, ok := m.Ports().(Ports)
	if !ok || ports.Sessions == nil {
		t.Fatalf("ports = %#v", m.Ports())
	}
	if _, ok := ports.Provider.(*youtube.CachedProvider); !ok {
		t.Fatalf("redis configured but provider is %T", ports.Provider)
	}

	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	r.Route("/api/v1", func(api phttp.Router) { m.MountRoutes(api) })
	m.MountSocket(r)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("history status = %d", rec.Code)
	}
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("envelope = %+v err=%v", env, err)
	}

	// plain GET on /ws is not an upgrade
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ws without upgrade status = %d", rec.Code)
	}
}

func TestNewWithoutRedisUsesClient(t *testing.T) {
	yt := newYouTubeStub(t)
	t.Setenv("YOUTUBE_API_KEY", "k")
	t.Setenv("YOUTUBE_BASE_URL", yt.URL)

	m := New(modkit.Deps{Log: *logger.Get(), Cfg: config.New()}, modkit.WithPrefix("/live"))
	t.Cleanup(m.Close)
	if m.Prefix() != "/live" {
		t.Fatalf("prefix option ignored: %q", m.Prefix())
	}
	if _, ok := m.Ports().(Ports).Provider.(*youtube.Client); !ok {
		t.Fatalf("provider = %T", m.Ports().(Ports).Provider)
	}
}
