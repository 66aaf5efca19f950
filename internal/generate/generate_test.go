package generate

import (
	"fmt"
	"testing"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/testutil"
)

func TestNewGeneratorValidation(t *testing.T) {
	if _, err := NewGenerator(nil, "gemini-2.0-flash-lite", testutil.DiscardLogger()); err == nil {
		t.Error("NewGenerator(nil client) error = nil, want error")
	}
}

func TestPromptTemplate(t *testing.T) {
	got := fmt.Sprintf(promptTemplate, "some retrieved context", "What GPU is needed?")

	want := "Answer the question based on the context provided.\n" +
		"    Context: some retrieved context\n" +
		"    Question: What GPU is needed?"
	if got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}
