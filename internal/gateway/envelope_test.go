package gateway

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid request",
			data: `{"type":"request","timestamp":"2026-08-31T10:00:00Z","session_id":"abc","payload":{"request":"hi"},"sender":"user"}`,
		},
		{
			name: "unknown type still decodes",
			data: `{"type":"ping","payload":{}}`,
		},
		{
			name:    "not json",
			data:    `hello`,
			wantErr: true,
		},
		{
			name:    "json array",
			data:    `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "missing type",
			data:    `{"payload":{"request":"hi"}}`,
			wantErr: true,
		},
		{
			name:    "empty type",
			data:    `{"type":""}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEnvelope([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedEnvelope) {
				t.Errorf("error %v does not wrap ErrMalformedEnvelope", err)
			}
		})
	}
}

func TestResponseEnvelope(t *testing.T) {
	env := newResponseEnvelope("sess-1", "the answer")

	if env.Type != TypeResponse {
		t.Errorf("type = %q, want %q", env.Type, TypeResponse)
	}
	if env.Sender != SenderServer {
		t.Errorf("sender = %q, want %q", env.Sender, SenderServer)
	}
	if env.SessionID != "sess-1" {
		t.Errorf("session_id = %q, want sess-1", env.SessionID)
	}
	if got := env.Payload["response"]; got != "the answer" {
		t.Errorf("payload.response = %v, want the answer", got)
	}

	meta, ok := env.Payload["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("payload.metadata = %T, want map", env.Payload["metadata"])
	}
	if meta["intent"] != "query_response" || meta["source"] != "vector_db" {
		t.Errorf("metadata = %v, want intent=query_response source=vector_db", meta)
	}

	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", env.Timestamp, err)
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := newErrorEnvelope("sess-1", msgUnknownType)

	if env.Type != TypeError {
		t.Errorf("type = %q, want %q", env.Type, TypeError)
	}
	if got := env.Payload["error"]; got != "Unknown message type." {
		t.Errorf("payload.error = %v, want the exact user-facing message", got)
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	env := newServerEnvelope(TypeInit, "sess-1", nil)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{"type", "timestamp", "session_id", "payload", "sender"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("serialized envelope missing key %q", key)
		}
	}
	// Payload is an object even when empty, never null.
	if string(raw["payload"]) == "null" {
		t.Error("payload serialized as null, want empty object")
	}
}
