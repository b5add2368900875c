package service

import (
	"context"
	"errors"
	"time"

	"tubelytics/internal/core/shape"
	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/metrics"
	"tubelytics/internal/services/tubelytics/domain"
)

type (
	subscribe struct{ term string }

	searchFetched struct {
		term    string
		results []domain.VideoRecord
		err     error
	}

	// subscription is owned by the poller loop
	subscription struct {
		term    string
		seen    shape.Seen
		replyTo domain.Sink
	}
)

// Poller keeps one live search per term: it fetches immediately, then on
// every tick, replying each cycle and publishing the batch to its stream
type Poller struct {
	u        *unit
	provider domain.Provider
	stream   *Stream[domain.SearchBatch]
	metrics  *metrics.Metrics
	interval time.Duration
	limit    int

	subs map[string]*subscription // loop only
}

// NewPoller starts a poller publishing into stream
func NewPoller(ctx context.Context, sessionID string, d Deps, stream *Stream[domain.SearchBatch]) *Poller {
	cfg := d.Config.withDefaults()
	p := &Poller{
		u:        newUnit(ctx, PollerName, sessionID, cfg.MailboxSize),
		provider: d.Provider,
		stream:   stream,
		metrics:  d.Metrics,
		interval: cfg.PollInterval,
		limit:    cfg.ResultLimit,
		subs:     map[string]*subscription{},
	}
	p.u.start(p.receive)
	return p
}

// Subscribe starts polling term for replyTo. Repeated terms are no-ops
func (p *Poller) Subscribe(term string, replyTo domain.Sink) error {
	return p.u.tell(subscribe{term: term}, replyTo)
}

// Tell posts an arbitrary message; unknown types are answered with a failure
func (p *Poller) Tell(msg any, replyTo domain.Sink) error { return p.u.tell(msg, replyTo) }

// Stream is where every successful cycle is published
func (p *Poller) Stream() *Stream[domain.SearchBatch] { return p.stream }

// Stop cancels every subscription, waits for in-flight cycles and closes the stream
func (p *Poller) Stop() {
	p.u.stop()
	p.stream.Close()
}

func (p *Poller) receive(env envelope) {
	switch m := env.msg.(type) {
	case subscribe:
		p.onSubscribe(m.term, env.replyTo)
	case searchFetched:
		p.onFetched(m)
	default:
		p.u.unsupported(env)
	}
}

func (p *Poller) onSubscribe(term string, replyTo domain.Sink) {
	if _, ok := p.subs[term]; ok {
		p.u.log.Debug().Str("term", term).Msg("already subscribed")
		return
	}
	p.subs[term] = &subscription{term: term, seen: shape.Seen{}, replyTo: replyTo}
	p.u.log.Info().Str("term", term).Dur("interval", p.interval).Msg("subscribed")

	p.u.spawn(replyTo, term, func(ctx context.Context) { p.tick(ctx, term, replyTo) })
}

// tick starts one cycle now and one per interval until ctx ends. Every cycle
// runs on its own goroutine, so a fetch slower than the interval never costs
// a tick; overlapping cycles complete in whatever order the provider answers
func (p *Poller) tick(ctx context.Context, term string, replyTo domain.Sink) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.u.spawn(replyTo, term, func(ctx context.Context) { p.fetch(ctx, term) })

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *Poller) fetch(ctx context.Context, term string) {
	results, err := p.provider.SearchVideos(ctx, term)
	if ctx.Err() != nil {
		return
	}
	p.u.complete(searchFetched{term: term, results: results, err: err}, nil)
}

func (p *Poller) onFetched(m searchFetched) {
	sub, ok := p.subs[m.term]
	if !ok {
		return
	}
	p.metrics.PollCycle(m.err)
	if m.err != nil {
		p.u.log.Warn().Err(m.err).Str("term", m.term).Msg("search cycle failed; retrying next tick")
		p.u.reply(sub.replyTo, domain.Failure{Source: PollerName, Subject: m.term, Err: m.err})
		return
	}

	batch := shape.Truncate(m.results, p.limit)
	fresh, next := shape.DedupeByID(batch, sub.seen, domain.RecordID)
	sub.seen = next
	p.metrics.FreshResults(len(fresh))
	p.u.log.Debug().Str("term", m.term).Int("results", len(batch)).Int("fresh", len(fresh)).Msg("search cycle")

	out := domain.SearchBatch{Query: m.term, Results: batch}
	p.u.reply(sub.replyTo, out)

	if err := p.stream.Offer(p.u.ctx, out); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, perr.ErrClosed) {
		p.u.log.Warn().Err(err).Str("term", m.term).Msg("stream offer failed")
	}
}
