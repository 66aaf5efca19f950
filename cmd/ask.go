package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/gateway"
)

var (
	askServer  string
	askTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against a running server",
	Long: `Connects to the websocket chat endpoint of a running server, sends
one question, prints the answer, and disconnects.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "localhost:8000", "Server address (host:port)")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "Time to wait for an answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, question string) error {
	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: askServer, Path: gateway.ChatEndpoint}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", u.String(), err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	// The server greets with an init envelope carrying the session id.
	greeting, err := readEnvelope(conn)
	if err != nil {
		return fmt.Errorf("reading greeting: %w", err)
	}
	if greeting.Type != gateway.TypeInit {
		return fmt.Errorf("unexpected greeting type %q", greeting.Type)
	}

	req := gateway.Envelope{
		Type:      gateway.TypeRequest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SessionID: greeting.SessionID,
		Payload:   map[string]any{"request": question},
		Sender:    gateway.SenderUser,
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending question: %w", err)
	}

	resp, err := readEnvelope(conn)
	if err != nil {
		return fmt.Errorf("reading answer: %w", err)
	}

	switch resp.Type {
	case gateway.TypeResponse:
		answer, _ := resp.Payload["response"].(string)
		fmt.Println(answer)
		return nil
	case gateway.TypeError:
		msg, _ := resp.Payload["error"].(string)
		return fmt.Errorf("server error: %s", msg)
	default:
		return fmt.Errorf("unexpected response type %q", resp.Type)
	}
}

func readEnvelope(conn *websocket.Conn) (gateway.Envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return gateway.Envelope{}, err
	}
	var env gateway.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return gateway.Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
