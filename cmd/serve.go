package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/app"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/config"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/gateway"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/log"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var (
	serveAddr       string
	serveTrustProxy bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (host:port), overrides config")
	serveCmd.Flags().BoolVar(&serveTrustProxy, "trust-proxy", false, "Trust X-Real-IP/X-Forwarded-For headers")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and runs the HTTP server until
// interrupted.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})
	logger.Info("starting chat server", "version", Version, "vector_provider", cfg.VectorProvider)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srvGateway, err := gateway.NewServer(gateway.ServerConfig{
		Logger:     logger,
		Answerer:   a.Orchestrator,
		RateBurst:  cfg.RateBurst,
		TrustProxy: serveTrustProxy,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srvGateway.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		// No Read/WriteTimeout: websocket sessions are long-lived.
	}

	logger.Info("server ready",
		"addr", cfg.ListenAddr,
		"chat", gateway.ChatEndpoint,
		"health", "/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	}
}
