// Package http provides the websocket session endpoint and the session
// history API
package http

import (
	"context"
	stdhttp "net/http"
	"slices"
	"time"

	"tubelytics/internal/modkit/httpkit"
	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/services/tubelytics/domain"
	"tubelytics/internal/services/tubelytics/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionHeader carries the session id on the upgrade response
const SessionHeader = "X-Session-ID"

// Sessions is what the transport needs from the service
type Sessions interface {
	Open(ctx context.Context, id string, out service.Transport) *service.Session
	History(id string) ([]domain.SearchBatch, bool)
}

// Options tune the websocket connection
type Options struct {
	WriteTimeout    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
	// AllowedOrigins empty or containing "*" accepts any origin
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
	return o
}

// RegisterSocket mounts GET /ws. Keep it off any compressing or timeout middleware
func RegisterSocket(r httpkit.Router, s Sessions, o Options) {
	o = o.withDefaults()
	h := &socket{svc: s, opts: o}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	r.Get("/ws", h.serve)
}

// Register mounts the JSON API for sessions, usually under /api/v1/sessions
func Register(r httpkit.Router, s Sessions) {
	h := &handlers{svc: s}

	// newest first search batches of a live session
	httpkit.Get(r, "/{id}/history", h.history)
}

type handlers struct{ svc Sessions }

type historyView struct {
	SessionID string               `json:"sessionId"`
	Entries   []domain.SearchBatch `json:"entries"`
}

func (h *handlers) history(r *stdhttp.Request) (any, error) {
	id := httpkit.URLParam(r, "id")
	entries, ok := h.svc.History(id)
	if !ok {
		return nil, perr.NotFoundf("session %s not found", id)
	}
	for i := range entries {
		if entries[i].Results == nil {
			entries[i].Results = []domain.VideoRecord{}
		}
	}
	return historyView{SessionID: id, Entries: entries}, nil
}

// newSessionID is a seam for tests
var newSessionID = uuid.NewString

type socket struct {
	svc      Sessions
	opts     Options
	upgrader websocket.Upgrader
}

func (h *socket) checkOrigin(r *stdhttp.Request) bool {
	allowed := h.opts.AllowedOrigins
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return true
	}
	return slices.Contains(allowed, r.Header.Get("Origin"))
}

func (h *socket) serve(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := newSessionID()
	ctx := logger.WithSession(r.Context(), id)
	log := logger.C(ctx)

	ws, err := h.upgrader.Upgrade(w, r, stdhttp.Header{SessionHeader: []string{id}})
	if err != nil {
		// the upgrader has already written the error response
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = ws.Close() }()

	sess := h.svc.Open(ctx, id, &conn{ws: ws, timeout: h.opts.WriteTimeout})
	defer sess.Close()

	ws.SetReadLimit(h.opts.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go h.ping(ws, stop)

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if kind == websocket.TextMessage {
			err = sess.HandleText(string(data))
		} else {
			err = sess.HandleUnsupported(frameName(kind))
		}
		if err != nil {
			return
		}
	}
}

// ping keeps idle connections alive; WriteControl is safe next to the session writer
func (h *socket) ping(ws *websocket.Conn, stop <-chan struct{}) {
	t := time.NewTicker(h.opts.PongWait * 9 / 10)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func frameName(kind int) string {
	switch kind {
	case websocket.BinaryMessage:
		return "binary"
	case websocket.CloseMessage:
		return "close"
	case websocket.PingMessage:
		return "ping"
	case websocket.PongMessage:
		return "pong"
	default:
		return "unknown"
	}
}

// conn is the session transport over one websocket. Only the session loop writes
type conn struct {
	ws      *websocket.Conn
	timeout time.Duration
}

func (c *conn) WriteJSON(v any) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) WriteText(s string) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(s))
}
