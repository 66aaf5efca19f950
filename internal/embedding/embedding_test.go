package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/testutil"
)

func TestNewClientRequiresGenai(t *testing.T) {
	if _, err := NewClient(nil, Config{}, testutil.DiscardLogger()); err == nil {
		t.Error("NewClient(nil) error = nil, want error")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	// The input check runs before any remote call, so no genai client is
	// needed here.
	c := &Client{cfg: Config{Model: "m", Dimension: 1536}, logger: testutil.DiscardLogger()}

	_, err := c.EmbedDocuments(context.Background(), nil)
	if !errors.Is(err, ErrService) {
		t.Errorf("EmbedDocuments(nil) error = %v, want ErrService", err)
	}

	_, err = c.EmbedDocuments(context.Background(), []string{})
	if !errors.Is(err, ErrService) {
		t.Errorf("EmbedDocuments(empty) error = %v, want ErrService", err)
	}
}
