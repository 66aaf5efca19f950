package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockAnswerer returns a canned answer or an injected error.
type mockAnswerer struct {
	answer    string
	err       error
	callCount int
	lastQuery string
}

func (m *mockAnswerer) Answer(_ context.Context, query string) (string, error) {
	m.callCount++
	m.lastQuery = query
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

// dialChat starts a test server around the gateway and opens a websocket
// session, consuming the init envelope. Cleanup closes both.
func dialChat(t *testing.T, answerer Answerer) (*websocket.Conn, Envelope) {
	t.Helper()

	srv, err := NewServer(ServerConfig{
		Logger:    testutil.DiscardLogger(),
		Answerer:  answerer,
		RateBurst: 100,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + ChatEndpoint
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var init Envelope
	if err := conn.ReadJSON(&init); err != nil {
		t.Fatalf("reading init envelope: %v", err)
	}
	return conn, init
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	return env
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("writing envelope: %v", err)
	}
}

func TestSessionInit(t *testing.T) {
	_, init := dialChat(t, &mockAnswerer{answer: "hi"})

	if init.Type != TypeInit {
		t.Errorf("first envelope type = %q, want %q", init.Type, TypeInit)
	}
	if init.Sender != SenderServer {
		t.Errorf("sender = %q, want %q", init.Sender, SenderServer)
	}
	if err := uuid.Validate(init.SessionID); err != nil {
		t.Errorf("session_id %q is not a UUID: %v", init.SessionID, err)
	}
	if _, err := time.Parse(time.RFC3339, init.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", init.Timestamp, err)
	}
}

func TestSessionRequestResponse(t *testing.T) {
	answerer := &mockAnswerer{answer: "A T4 GPU with 16GB VRAM."}
	conn, init := dialChat(t, answerer)

	writeJSON(t, conn, Envelope{
		Type:      TypeRequest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SessionID: init.SessionID,
		Payload:   map[string]any{"request": "What GPU is needed?"},
		Sender:    SenderUser,
	})

	resp := readEnvelope(t, conn)
	if resp.Type != TypeResponse {
		t.Fatalf("response type = %q, want %q", resp.Type, TypeResponse)
	}
	if resp.SessionID != init.SessionID {
		t.Errorf("response session_id = %q, want %q", resp.SessionID, init.SessionID)
	}
	if got := resp.Payload["response"]; got != "A T4 GPU with 16GB VRAM." {
		t.Errorf("payload.response = %v, want answer", got)
	}
	meta, _ := resp.Payload["metadata"].(map[string]any)
	if meta["intent"] != "query_response" || meta["source"] != "vector_db" {
		t.Errorf("metadata = %v, want intent=query_response source=vector_db", meta)
	}
	if answerer.lastQuery != "What GPU is needed?" {
		t.Errorf("answerer received %q, want raw question", answerer.lastQuery)
	}
}

func TestSessionStampsOwnID(t *testing.T) {
	conn, init := dialChat(t, &mockAnswerer{answer: "ok"})

	tests := []struct {
		name      string
		sessionID string
	}{
		{"missing session_id", ""},
		{"foreign session_id", "some-other-session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeJSON(t, conn, Envelope{
				Type:      TypeRequest,
				SessionID: tt.sessionID,
				Payload:   map[string]any{"request": "q"},
				Sender:    SenderUser,
			})

			resp := readEnvelope(t, conn)
			if resp.SessionID != init.SessionID {
				t.Errorf("response session_id = %q, want connection's own id %q", resp.SessionID, init.SessionID)
			}
			if err := uuid.Validate(resp.SessionID); err != nil {
				t.Errorf("session_id %q is not a UUID: %v", resp.SessionID, err)
			}
		})
	}
}

func TestSessionUnknownType(t *testing.T) {
	answerer := &mockAnswerer{answer: "ok"}
	conn, _ := dialChat(t, answerer)

	writeJSON(t, conn, Envelope{
		Type:    "subscribe",
		Payload: map[string]any{},
		Sender:  SenderUser,
	})

	resp := readEnvelope(t, conn)
	if resp.Type != TypeError {
		t.Fatalf("response type = %q, want %q", resp.Type, TypeError)
	}
	if got := resp.Payload["error"]; got != "Unknown message type." {
		t.Errorf("payload.error = %v, want exact unknown-type message", got)
	}
	if answerer.callCount != 0 {
		t.Errorf("answerer called %d times for unknown type, want 0", answerer.callCount)
	}
}

func TestSessionInboundError(t *testing.T) {
	conn, _ := dialChat(t, &mockAnswerer{answer: "ok"})

	writeJSON(t, conn, Envelope{
		Type:    TypeError,
		Payload: map[string]any{"error": "client side broke"},
		Sender:  SenderUser,
	})

	resp := readEnvelope(t, conn)
	if resp.Type != TypeError {
		t.Fatalf("response type = %q, want %q", resp.Type, TypeError)
	}
	if got := resp.Payload["error"]; got != "An error occurred while processing the message." {
		t.Errorf("payload.error = %v, want generic processing message", got)
	}
}

func TestSessionMalformedFrame(t *testing.T) {
	conn, init := dialChat(t, &mockAnswerer{answer: "ok"})

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("writing frame: %v", err)
	}

	resp := readEnvelope(t, conn)
	if resp.Type != TypeError {
		t.Fatalf("response type = %q, want %q", resp.Type, TypeError)
	}
	if got := resp.Payload["error"]; got != "An error occurred while processing the message." {
		t.Errorf("payload.error = %v, want generic processing message", got)
	}

	// The connection survives a malformed frame.
	writeJSON(t, conn, Envelope{
		Type:      TypeRequest,
		SessionID: init.SessionID,
		Payload:   map[string]any{"request": "q"},
		Sender:    SenderUser,
	})
	if resp := readEnvelope(t, conn); resp.Type != TypeResponse {
		t.Errorf("after malformed frame, response type = %q, want %q", resp.Type, TypeResponse)
	}
}

func TestSessionAnswerFailure(t *testing.T) {
	conn, _ := dialChat(t, &mockAnswerer{err: errors.New("upstream quota exceeded")})

	writeJSON(t, conn, Envelope{
		Type:    TypeRequest,
		Payload: map[string]any{"request": "q"},
		Sender:  SenderUser,
	})

	resp := readEnvelope(t, conn)
	if resp.Type != TypeError {
		t.Fatalf("response type = %q, want %q", resp.Type, TypeError)
	}
	// The underlying cause must never reach the client.
	data, _ := json.Marshal(resp)
	if strings.Contains(string(data), "quota") {
		t.Errorf("response leaks the internal error: %s", data)
	}
	if got := resp.Payload["error"]; got != "An error occurred while processing the message." {
		t.Errorf("payload.error = %v, want generic processing message", got)
	}
}

func TestSessionIDsDistinctPerConnection(t *testing.T) {
	answerer := &mockAnswerer{answer: "ok"}

	_, first := dialChat(t, answerer)
	_, second := dialChat(t, answerer)

	if first.SessionID == second.SessionID {
		t.Errorf("two connections share session_id %q", first.SessionID)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:   testutil.DiscardLogger(),
		Answerer: &mockAnswerer{answer: "ok"},
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d rejected inside burst", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request beyond burst allowed")
	}
	// Another IP has its own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("distinct IP rejected")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "192.0.2.10:54321",
			want:       "192.0.2.10",
		},
		{
			name:       "proxy headers ignored by default",
			remoteAddr: "192.0.2.10:54321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			want:       "192.0.2.10",
		},
		{
			name:       "x-real-ip trusted behind proxy",
			remoteAddr: "192.0.2.10:54321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			trustProxy: true,
			want:       "203.0.113.5",
		},
		{
			name:       "first forwarded-for entry",
			remoteAddr: "192.0.2.10:54321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 198.51.100.7"},
			trustProxy: true,
			want:       "203.0.113.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
