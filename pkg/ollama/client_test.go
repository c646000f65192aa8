package ollama_test

import (
	"testing"

	"github.com/garnizeh/crackedclub/pkg/ollama"
)

func TestRenderTemplate_Join(t *testing.T) {
	out, err := ollama.RenderTemplate(`{{.Email}}: {{join .Tags ", "}}`, map[string]any{
		"Email": "ada@example.com",
		"Tags":  []string{"ai", "robotics"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "ada@example.com: ai, robotics" {
		t.Fatalf("unexpected render %q", out)
	}

	if _, err := ollama.RenderTemplate(`{{.Broken`, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
