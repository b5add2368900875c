package service

import (
	"context"

	"tubelytics/internal/core/shape"
	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/services/tubelytics/domain"
)

type (
	channelLookup  struct{ id string }
	channelFetched struct {
		id      string
		profile domain.ChannelProfile
		found   bool
		err     error
	}
)

// ChannelWorker composes channel profiles with their recent uploads
type ChannelWorker struct {
	u        *unit
	provider domain.Provider
	recent   int
}

// NewChannelWorker starts a channel worker
func NewChannelWorker(ctx context.Context, sessionID string, d Deps) *ChannelWorker {
	cfg := d.Config.withDefaults()
	w := &ChannelWorker{
		u:        newUnit(ctx, ChannelName, sessionID, cfg.MailboxSize),
		provider: d.Provider,
		recent:   cfg.RecentVideos,
	}
	w.u.start(w.receive)
	return w
}

// Lookup fetches channel id and its most recent videos
func (w *ChannelWorker) Lookup(id string, replyTo domain.Sink) error {
	return w.u.tell(channelLookup{id: id}, replyTo)
}

// Tell posts an arbitrary message; unknown types are answered with a failure
func (w *ChannelWorker) Tell(msg any, replyTo domain.Sink) error { return w.u.tell(msg, replyTo) }

// Stop tears the worker down and waits for in-flight lookups
func (w *ChannelWorker) Stop() { w.u.stop() }

func (w *ChannelWorker) receive(env envelope) {
	switch m := env.msg.(type) {
	case channelLookup:
		if m.id == "" {
			w.u.reply(env.replyTo, domain.Failure{Source: ChannelName, Err: perr.InvalidArgf("channel id is empty")})
			return
		}
		w.u.spawn(env.replyTo, m.id, func(ctx context.Context) {
			w.u.complete(w.fetch(ctx, m.id), env.replyTo)
		})
	case channelFetched:
		switch {
		case m.err != nil:
			w.u.log.Warn().Err(m.err).Str("channel_id", m.id).Msg("channel lookup failed")
			w.u.reply(env.replyTo, domain.Failure{Source: ChannelName, Subject: m.id, Err: m.err})
		case !m.found:
			w.u.reply(env.replyTo, domain.ChannelNotFound{ChannelID: m.id})
		default:
			w.u.reply(env.replyTo, domain.ChannelResult{Profile: m.profile})
		}
	default:
		w.u.unsupported(env)
	}
}

func (w *ChannelWorker) fetch(ctx context.Context, id string) channelFetched {
	profile, ok, err := w.provider.FetchChannel(ctx, id)
	if err != nil || !ok {
		return channelFetched{id: id, found: ok, err: err}
	}
	videos, err := w.provider.FetchRecentVideosForChannel(ctx, id, w.recent)
	if err != nil {
		return channelFetched{id: id, err: err}
	}
	profile.RecentVideos = shape.Truncate(videos, w.recent)
	return channelFetched{id: id, profile: profile, found: true}
}
