// Package metrics holds the prometheus collectors for the tubelytics process.
// A nil *Metrics is valid and records nothing
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors registered on its own registry
type Metrics struct {
	Registry *prometheus.Registry

	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	SessionsActive   prometheus.Gauge
	CommandsTotal    *prometheus.CounterVec
	RepliesTotal     *prometheus.CounterVec
	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	PollCycles       *prometheus.CounterVec
	PollFresh        prometheus.Counter
	StreamBlocked    prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
}

// New builds and registers every collector. Go and process collectors are included
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubelytics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tubelytics_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tubelytics_sessions_active",
			Help: "Number of open websocket sessions.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubelytics_commands_total",
			Help: "Inbound session commands, by kind.",
		}, []string{"kind"}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubelytics_replies_total",
			Help: "Outbound session replies, by type.",
		}, []string{"type"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubelytics_provider_calls_total",
			Help: "Content provider calls, by operation and outcome.",
		}, []string{"op", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubelytics_provider_call_duration_seconds",
			Help:    "Content provider call latency, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubelytics_poll_cycles_total",
			Help: "Search poller fetch cycles, by outcome.",
		}, []string{"outcome"}),
		PollFresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubelytics_poll_fresh_results_total",
			Help: "Search results a subscription had not seen before.",
		}),
		StreamBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubelytics_stream_blocked_total",
			Help: "Batches whose publish had to wait for stream capacity.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubelytics_cache_hits_total",
			Help: "Total Redis channel cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubelytics_cache_misses_total",
			Help: "Total Redis channel cache misses.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestDuration,
		m.RequestsInFlight,
		m.SessionsActive,
		m.CommandsTotal,
		m.RepliesTotal,
		m.ProviderCalls,
		m.ProviderDuration,
		m.PollCycles,
		m.PollFresh,
		m.StreamBlocked,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request duration by chi route pattern and tracks in-flight requests
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

// SessionOpened and SessionClosed track live websocket sessions
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

// SessionClosed decrements the live session gauge
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

// Command counts an inbound command of the given kind
func (m *Metrics) Command(kind string) {
	if m != nil {
		m.CommandsTotal.WithLabelValues(kind).Inc()
	}
}

// Reply counts an outbound reply of the given type
func (m *Metrics) Reply(typ string) {
	if m != nil {
		m.RepliesTotal.WithLabelValues(typ).Inc()
	}
}

// ProviderCall records one provider call outcome and latency
func (m *Metrics) ProviderCall(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderCalls.WithLabelValues(op, outcome).Inc()
	m.ProviderDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// PollCycle counts a poller fetch cycle
func (m *Metrics) PollCycle(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PollCycles.WithLabelValues("error").Inc()
		return
	}
	m.PollCycles.WithLabelValues("ok").Inc()
}

// FreshResults counts results new to a subscription
func (m *Metrics) FreshResults(n int) {
	if m != nil && n > 0 {
		m.PollFresh.Add(float64(n))
	}
}

// StreamWaited counts a publish that found the stream full
func (m *Metrics) StreamWaited() {
	if m != nil {
		m.StreamBlocked.Inc()
	}
}

// CacheHit and CacheMiss count Redis cache lookups
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// CacheMiss counts a Redis cache miss
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// statusWriter captures the status and forwards Hijack for websocket upgrades
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
