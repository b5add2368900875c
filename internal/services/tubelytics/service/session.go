package service

import (
	"context"
	"sync"

	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"
	"tubelytics/internal/services/tubelytics/domain"

	"github.com/google/uuid"
)

// Transport writes to the client. Only the session loop calls it
type Transport interface {
	WriteJSON(v any) error
	WriteText(s string) error
}

type (
	inboundText        struct{ text string }
	inboundUnsupported struct{ kind string }
	inboundReply       struct{ reply domain.Reply }
)

// Session is the coordinator of one client connection. Inbound messages and
// worker replies share one mailbox, so commands are dispatched in arrival
// order and only the loop writes to the transport
type Session struct {
	id      string
	u       *unit
	out     Transport
	history domain.HistoryStore
	metrics *metrics.Metrics

	poller   *Poller
	tags     *TagWorker
	channels *ChannelWorker
	words    *WordStatsWorker

	drain     sync.WaitGroup
	closeOnce sync.Once
	onClose   func()
}

// Service opens sessions over shared dependencies and tracks the live ones
type Service struct {
	deps Deps
	log  logger.Logger

	mu   sync.Mutex
	live map[string]*Session
}

// New builds a Service
func New(d Deps) *Service {
	if d.Provider == nil {
		panic("tubelytics.Service requires a non nil Provider")
	}
	d.Config = d.Config.withDefaults()
	return &Service{deps: d, log: *logger.Named(SessionName), live: map[string]*Session{}}
}

// Open starts a session writing to out. An empty id gets a fresh uuid
func (s *Service) Open(ctx context.Context, id string, out Transport) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logger.WithSession(ctx, id)
	d := s.deps
	stream := NewStream[domain.SearchBatch](d.Config.StreamCapacity, d.Metrics)

	sess := &Session{
		id:       id,
		u:        newUnit(ctx, SessionName, id, d.Config.MailboxSize),
		out:      out,
		history:  d.History,
		metrics:  d.Metrics,
		poller:   NewPoller(ctx, id, d, stream),
		tags:     NewTagWorker(ctx, id, d),
		channels: NewChannelWorker(ctx, id, d),
		words:    NewWordStatsWorker(ctx, id, d),
	}
	sess.onClose = func() { s.forget(id) }
	if sess.history != nil {
		sess.history.Create(id)
	}

	sess.drain.Add(1)
	go sess.record(stream)
	sess.u.start(sess.receive)

	s.mu.Lock()
	s.live[id] = sess
	s.mu.Unlock()

	d.Metrics.SessionOpened()
	logger.C(ctx).Info().Msg("session opened")
	return sess
}

// Get returns a live session
func (s *Service) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[id]
	return sess, ok
}

// Live is the number of open sessions
func (s *Service) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// History returns the recent search batches of a live session, newest first
func (s *Service) History(id string) ([]domain.SearchBatch, bool) {
	if s.deps.History == nil {
		return nil, false
	}
	return s.deps.History.Get(id)
}

// CloseAll closes every live session, e.g. on shutdown
func (s *Service) CloseAll() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.live))
	for _, sess := range s.live {
		all = append(all, sess)
	}
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	if len(all) > 0 {
		s.log.Info().Int("sessions", len(all)).Msg("closed live sessions")
	}
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// ID is the session id
func (s *Session) ID() string { return s.id }

// HandleText queues an inbound text frame
func (s *Session) HandleText(text string) error {
	return s.u.tell(inboundText{text: text}, nil)
}

// HandleUnsupported queues an inbound frame that is not text
func (s *Session) HandleUnsupported(kind string) error {
	return s.u.tell(inboundUnsupported{kind: kind}, nil)
}

// Deliver implements domain.Sink. It never blocks the calling worker, even
// while the inbound mailbox is full. Replies after Close are discarded
func (s *Session) Deliver(r domain.Reply) {
	_ = s.u.post(inboundReply{reply: r}, nil)
}

// Close stops every worker and waits for them. It is terminal and idempotent
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// refuse replies first so workers never wait on a closing loop
		s.u.cancel()

		s.poller.Stop()
		s.tags.Stop()
		s.channels.Stop()
		s.words.Stop()
		s.drain.Wait()
		s.u.stop()

		if s.history != nil {
			s.history.Drop(s.id)
		}
		if s.onClose != nil {
			s.onClose()
		}
		s.metrics.SessionClosed()
		s.u.log.Info().Msg("session closed")
	})
}

func (s *Session) receive(env envelope) {
	switch m := env.msg.(type) {
	case inboundText:
		s.dispatch(domain.ParseCommand(m.text))
	case inboundUnsupported:
		s.metrics.Command("unsupported")
		s.u.log.Debug().Str("kind", m.kind).Msg("unsupported frame")
		if err := s.out.WriteText(domain.UnsupportedMessage); err != nil {
			s.u.log.Warn().Err(err).Msg("write failed")
		}
	case inboundReply:
		s.metrics.Reply(m.reply.Type())
		if err := s.out.WriteJSON(m.reply.Payload()); err != nil {
			s.u.log.Warn().Err(err).Str("type", m.reply.Type()).Msg("write failed")
		}
	default:
		s.u.log.Warn().Type("msg", env.msg).Msg("unsupported message type")
	}
}

func (s *Session) dispatch(cmd domain.Command) {
	s.metrics.Command(cmd.Kind())
	var err error
	switch c := cmd.(type) {
	case domain.ChannelLookup:
		err = s.channels.Lookup(c.ChannelID, s)
	case domain.WordStats:
		err = s.words.Stats(c.Term, s)
	case domain.TagLookup:
		err = s.tags.Lookup(c.Term, s)
	case domain.SearchQuery:
		err = s.poller.Subscribe(c.Term, s)
	}
	if err != nil {
		s.u.log.Warn().Err(err).Str("kind", cmd.Kind()).Msg("dispatch failed")
	}
}

// record moves published search batches into the history store until the
// poller closes the stream
func (s *Session) record(stream *Stream[domain.SearchBatch]) {
	defer s.drain.Done()
	for {
		b, err := stream.Recv(context.Background())
		if err != nil {
			return
		}
		if s.history != nil {
			s.history.Record(s.id, b)
		}
	}
}
