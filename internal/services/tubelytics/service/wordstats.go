package service

import (
	"context"
	"strings"

	"tubelytics/internal/core/normalize"
	"tubelytics/internal/core/shape"
	"tubelytics/internal/services/tubelytics/domain"
)

type (
	wordStatsTerm  struct{ term string }
	wordStatsBatch struct {
		term  string
		batch []domain.VideoRecord
	}
	wordStatsFetched struct {
		term    string
		results []domain.VideoRecord
		err     error
	}
)

// WordStatsWorker counts description words. It keeps no state between requests
type WordStatsWorker struct {
	u        *unit
	provider domain.Provider
	fold     bool
}

// NewWordStatsWorker starts a word statistics worker
func NewWordStatsWorker(ctx context.Context, sessionID string, d Deps) *WordStatsWorker {
	cfg := d.Config.withDefaults()
	w := &WordStatsWorker{
		u:        newUnit(ctx, WordStatsName, sessionID, cfg.MailboxSize),
		provider: d.Provider,
		fold:     cfg.FoldWords,
	}
	w.u.start(w.receive)
	return w
}

// Stats searches term and replies with the frequency table of every result
func (w *WordStatsWorker) Stats(term string, replyTo domain.Sink) error {
	return w.u.tell(wordStatsTerm{term: term}, replyTo)
}

// Analyze replies with the frequency table of an already fetched batch
func (w *WordStatsWorker) Analyze(term string, batch []domain.VideoRecord, replyTo domain.Sink) error {
	return w.u.tell(wordStatsBatch{term: term, batch: batch}, replyTo)
}

// Tell posts an arbitrary message; unknown types are answered with a failure
func (w *WordStatsWorker) Tell(msg any, replyTo domain.Sink) error { return w.u.tell(msg, replyTo) }

// Stop tears the worker down and waits for in-flight searches
func (w *WordStatsWorker) Stop() { w.u.stop() }

func (w *WordStatsWorker) receive(env envelope) {
	switch m := env.msg.(type) {
	case wordStatsTerm:
		if strings.TrimSpace(m.term) == "" {
			w.u.reply(env.replyTo, domain.WordStatsResult{Term: m.term, Table: shape.FrequencyTable{}})
			return
		}
		w.u.spawn(env.replyTo, m.term, func(ctx context.Context) {
			res, err := w.provider.SearchVideos(ctx, m.term)
			w.u.complete(wordStatsFetched{term: m.term, results: res, err: err}, env.replyTo)
		})
	case wordStatsFetched:
		if m.err != nil {
			w.u.log.Warn().Err(m.err).Str("term", m.term).Msg("word stats search failed")
			w.u.reply(env.replyTo, domain.Failure{Source: WordStatsName, Subject: m.term, Err: m.err})
			return
		}
		w.u.reply(env.replyTo, w.table(m.term, m.results))
	case wordStatsBatch:
		w.u.reply(env.replyTo, w.table(m.term, m.batch))
	default:
		w.u.unsupported(env)
	}
}

func (w *WordStatsWorker) table(term string, batch []domain.VideoRecord) domain.WordStatsResult {
	texts := domain.Descriptions(batch)
	if w.fold {
		texts = normalize.FoldAll(texts)
	}
	return domain.WordStatsResult{Term: term, Table: shape.BuildFrequencyTable(texts)}
}
