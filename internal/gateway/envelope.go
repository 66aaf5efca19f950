// Package gateway implements the websocket session layer: it frames
// traffic into typed envelopes and routes recognized message types to the
// retrieval pipeline.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message sender identifiers.
const (
	SenderServer = "server"
	SenderUser   = "user"
)

// Envelope types exchanged over a session.
const (
	TypeInit     = "init"
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeError    = "error"
)

// User-facing error messages. Deliberately generic: the underlying cause is
// logged server-side and never leaks to the client.
const (
	msgProcessingError = "An error occurred while processing the message."
	msgUnknownType     = "Unknown message type."
)

// ErrMalformedEnvelope indicates an inbound frame that does not parse as an
// envelope. Reported in-band; the connection stays open.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the message unit exchanged over a session. Every inbound and
// outbound frame is one UTF-8 JSON envelope.
type Envelope struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload"`
	Sender    string         `json:"sender"`
}

// newServerEnvelope builds an outbound envelope stamped with the current
// UTC time and sender "server".
func newServerEnvelope(envType, sessionID string, payload map[string]any) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{
		Type:      envType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SessionID: sessionID,
		Payload:   payload,
		Sender:    SenderServer,
	}
}

// newResponseEnvelope wraps an answer in a response envelope.
func newResponseEnvelope(sessionID, answer string) Envelope {
	return newServerEnvelope(TypeResponse, sessionID, map[string]any{
		"response": answer,
		"metadata": map[string]any{
			"intent": "query_response",
			"source": "vector_db",
		},
	})
}

// newErrorEnvelope wraps a user-facing error message in an error envelope.
func newErrorEnvelope(sessionID, message string) Envelope {
	return newServerEnvelope(TypeError, sessionID, map[string]any{
		"error": message,
	})
}

// decodeEnvelope parses an inbound text frame. A frame that is not a JSON
// object with a type field is malformed.
func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}
