package service

import (
	"context"
	"runtime/debug"
	"sync"

	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/services/tubelytics/domain"
)

// envelope is one mailbox message plus the sink its answer goes to
type envelope struct {
	msg     any
	replyTo domain.Sink
}

// unit is the single goroutine loop every worker runs on. Messages are
// handled one at a time in arrival order; blocking work is spawned off the
// loop and reports back through the same loop.
//
// Two queues feed the loop. box is bounded and carries commands from the
// layer above, so a flooding client is slowed down. pending is unbounded and
// carries replies and completions; a loop never waits on another loop
type unit struct {
	name string
	log  logger.Logger
	box  chan envelope

	mu      sync.Mutex
	pending []envelope
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	loop sync.WaitGroup // the mailbox goroutine
	work sync.WaitGroup // spawned provider calls and tickers
	once sync.Once
}

func newUnit(parent context.Context, name, sessionID string, size int) *unit {
	ctx, cancel := context.WithCancel(parent)
	return &unit{
		name:   name,
		log:    logger.Named(name).With().Str("session_id", sessionID).Logger(),
		box:    make(chan envelope, max(1, size)),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// start runs handle for every message until the unit is stopped
func (u *unit) start(handle func(envelope)) {
	u.loop.Add(1)
	go func() {
		defer u.loop.Done()
		for {
			select {
			case <-u.ctx.Done():
				return
			case env := <-u.box:
				// a message may win the select race against stop; drop it
				if u.ctx.Err() != nil {
					return
				}
				u.handle(env, handle)
			case <-u.wake:
				for _, env := range u.takePending() {
					if u.ctx.Err() != nil {
						return
					}
					u.handle(env, handle)
				}
			}
		}
	}()
}

func (u *unit) takePending() []envelope {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.pending
	u.pending = nil
	return out
}

func (u *unit) handle(env envelope, handle func(envelope)) {
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("handler panic recovered")
			u.reply(env.replyTo, domain.Failure{Source: u.name, Err: perr.PanicErrf("%s: internal error", u.name)})
		}
	}()
	handle(env)
}

// tell enqueues msg. It blocks while the mailbox is full and fails with
// perr.ErrClosed once the unit is stopped
func (u *unit) tell(msg any, replyTo domain.Sink) error {
	if u.ctx.Err() != nil {
		return perr.ErrClosed
	}
	select {
	case u.box <- envelope{msg: msg, replyTo: replyTo}:
		return nil
	case <-u.ctx.Done():
		return perr.ErrClosed
	}
}

// post enqueues msg without ever blocking the caller. Messages posted by one
// goroutine are handled in the order they were posted
func (u *unit) post(msg any, replyTo domain.Sink) error {
	if u.ctx.Err() != nil {
		return perr.ErrClosed
	}
	u.mu.Lock()
	u.pending = append(u.pending, envelope{msg: msg, replyTo: replyTo})
	u.mu.Unlock()
	select {
	case u.wake <- struct{}{}:
	default:
	}
	return nil
}

// spawn runs fn off the loop. A panic in fn becomes a failure for subject
func (u *unit) spawn(replyTo domain.Sink, subject string, fn func(ctx context.Context)) {
	u.work.Add(1)
	go func() {
		defer u.work.Done()
		defer func() {
			if r := recover(); r != nil {
				u.log.Error().Interface("panic", r).Str("subject", subject).Bytes("stack", debug.Stack()).Msg("worker task panic recovered")
				u.reply(replyTo, domain.Failure{Source: u.name, Subject: subject, Err: perr.PanicErrf("%s: internal error", u.name)})
			}
		}()
		fn(u.ctx)
	}()
}

// complete posts the result of spawned work back to the loop. After stop the
// result is discarded
func (u *unit) complete(msg any, replyTo domain.Sink) {
	if err := u.post(msg, replyTo); err != nil {
		u.log.Debug().Type("msg", msg).Msg("completion after stop discarded")
	}
}

// reply hands r to the sink unless the unit is already torn down
func (u *unit) reply(to domain.Sink, r domain.Reply) {
	if to == nil || u.ctx.Err() != nil {
		return
	}
	to.Deliver(r)
}

// unsupported answers a message the unit has no handler for
func (u *unit) unsupported(env envelope) {
	u.log.Warn().Type("msg", env.msg).Msg("unsupported message type")
	u.reply(env.replyTo, domain.NewUnsupported(u.name))
}

// stop cancels the unit and waits for the loop and all spawned work
func (u *unit) stop() {
	u.once.Do(func() {
		u.cancel()
		u.loop.Wait()
		u.work.Wait()
	})
}

func (u *unit) stopped() bool { return u.ctx.Err() != nil }
