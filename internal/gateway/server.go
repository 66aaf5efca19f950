package gateway

import (
	"errors"
	"log/slog"
	"net/http"
)

// ChatEndpoint is the websocket endpoint path.
const ChatEndpoint = "/ws/chat"

// ServerConfig contains configuration for the HTTP server wrapping the
// session gateway.
type ServerConfig struct {
	Logger     *slog.Logger
	Answerer   Answerer // Required
	RateBurst  int      // Connection attempts per IP before throttling (0 = default 60)
	TrustProxy bool     // Trust X-Real-IP/X-Forwarded-For (set behind a reverse proxy)
}

// Server exposes the websocket chat endpoint and a health probe.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := New(cfg.Answerer, logger.With("component", "gateway"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+ChatEndpoint, g.HandleChat)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first): Recovery → Logging → RateLimit
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probe bypasses the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
