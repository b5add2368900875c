package service

import (
	"context"
	"strings"

	"tubelytics/internal/core/shape"
	"tubelytics/internal/services/tubelytics/domain"
)

type (
	tagLookup  struct{ term string }
	tagFetched struct {
		term    string
		results []domain.VideoRecord
		err     error
	}
)

// TagWorker answers one-shot tag searches
type TagWorker struct {
	u        *unit
	provider domain.Provider
	limit    int
}

// NewTagWorker starts a tag worker
func NewTagWorker(ctx context.Context, sessionID string, d Deps) *TagWorker {
	cfg := d.Config.withDefaults()
	w := &TagWorker{
		u:        newUnit(ctx, TagName, sessionID, cfg.MailboxSize),
		provider: d.Provider,
		limit:    cfg.ResultLimit,
	}
	w.u.start(w.receive)
	return w
}

// Lookup searches term once and replies with at most ResultLimit videos
func (w *TagWorker) Lookup(term string, replyTo domain.Sink) error {
	return w.u.tell(tagLookup{term: term}, replyTo)
}

// Tell posts an arbitrary message; unknown types are answered with a failure
func (w *TagWorker) Tell(msg any, replyTo domain.Sink) error { return w.u.tell(msg, replyTo) }

// Stop tears the worker down and waits for in-flight lookups
func (w *TagWorker) Stop() { w.u.stop() }

func (w *TagWorker) receive(env envelope) {
	switch m := env.msg.(type) {
	case tagLookup:
		if strings.TrimSpace(m.term) == "" {
			w.u.reply(env.replyTo, domain.TagResults{Term: m.term, Results: []domain.VideoRecord{}})
			return
		}
		w.u.spawn(env.replyTo, m.term, func(ctx context.Context) {
			res, err := w.provider.SearchVideos(ctx, m.term)
			w.u.complete(tagFetched{term: m.term, results: res, err: err}, env.replyTo)
		})
	case tagFetched:
		if m.err != nil {
			w.u.log.Warn().Err(m.err).Str("term", m.term).Msg("tag lookup failed")
			w.u.reply(env.replyTo, domain.Failure{Source: TagName, Subject: m.term, Err: m.err})
			return
		}
		w.u.reply(env.replyTo, domain.TagResults{Term: m.term, Results: shape.Truncate(m.results, w.limit)})
	default:
		w.u.unsupported(env)
	}
}
