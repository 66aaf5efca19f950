package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Answerer resolves a user query to an answer. Satisfied by
// *retrieval.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Gateway upgrades HTTP requests to websocket sessions and runs each
// session's receive loop on the connection's own goroutine, so one slow
// remote call never serializes other sessions.
type Gateway struct {
	answerer Answerer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a session gateway.
func New(answerer Answerer, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		answerer: answerer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The endpoint has no origin policy; browsers and CLI clients
			// connect directly.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleChat is the websocket endpoint handler.
func (g *Gateway) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s := &session{
		id:        uuid.NewString(),
		createdAt: time.Now().UTC(),
		conn:      conn,
		answerer:  g.answerer,
	}
	s.logger = g.logger.With("session_id", s.id)

	s.run(r.Context())
}

// session is one client connection's lifetime. The id is generated at
// connect time and stable until disconnect; nothing survives the
// connection.
type session struct {
	id        string
	createdAt time.Time
	conn      *websocket.Conn
	answerer  Answerer
	logger    *slog.Logger
}

// run sends the init envelope and then processes frames until the client
// disconnects. Each message is handled fully before the next read; remote
// calls are the only suspension points.
func (s *session) run(ctx context.Context) {
	defer func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing connection", "error", err)
		}
	}()

	s.logger.Info("session opened", "remote", s.conn.RemoteAddr().String())

	if err := s.send(newServerEnvelope(TypeInit, s.id, nil)); err != nil {
		s.logger.Warn("sending init envelope", "error", err)
		return
	}

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			// Disconnects end only this session's loop, never the process.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("session closed unexpectedly", "error", err)
			} else {
				s.logger.Info("session closed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "message_type", msgType)
			continue
		}

		resp := s.process(ctx, data)
		if err := s.send(resp); err != nil {
			// The client may have vanished while a remote call was in
			// flight; a failed send is non-fatal here, the next read
			// returns the close error.
			s.logger.Debug("sending response", "error", err)
		}
	}
}

// process dispatches one inbound frame and returns the outbound envelope.
// Outbound envelopes always carry this connection's own session id,
// whatever the inbound frame claimed.
func (s *session) process(ctx context.Context, data []byte) Envelope {
	env, err := decodeEnvelope(data)
	if err != nil {
		s.logger.Warn("malformed envelope", "error", err)
		return newErrorEnvelope(s.id, msgProcessingError)
	}

	if env.SessionID == "" {
		s.logger.Debug("inbound envelope missing session_id")
	} else if env.SessionID != s.id {
		s.logger.Debug("inbound session_id differs from connection", "claimed", env.SessionID)
	}

	switch env.Type {
	case TypeRequest:
		text, _ := env.Payload["request"].(string)
		answer, err := s.answerer.Answer(ctx, text)
		if err != nil {
			// The coarse user-facing message never leaks the cause.
			s.logger.Error("processing request", "error", err)
			return newErrorEnvelope(s.id, msgProcessingError)
		}
		return newResponseEnvelope(s.id, answer)

	case TypeError:
		s.logger.Warn("client reported error", "payload", env.Payload)
		return newErrorEnvelope(s.id, msgProcessingError)

	default:
		s.logger.Warn("unknown message type", "type", env.Type)
		return newErrorEnvelope(s.id, msgUnknownType)
	}
}

// send encodes and writes one envelope as a text frame.
func (s *session) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
