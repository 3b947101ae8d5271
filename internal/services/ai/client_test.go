package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClient_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  Generator
		want string
	}{
		{"disabled", nil, ""},
		{"trims output", &mockGenerator{GenerateFunc: func(context.Context, string) (string, error) {
			return "  hello \n", nil
		}}, "hello"},
		{"error degrades to empty", &mockGenerator{GenerateFunc: func(context.Context, string) (string, error) {
			return "partial", errors.New("boom")
		}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewClient(tt.gen, time.Second, nil).Text(context.Background(), "p"); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_TextAppliesTimeout(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	start := time.Now()
	if got := NewClient(gen, 20*time.Millisecond, nil).Text(context.Background(), "slow"); got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Text() did not honor the timeout")
	}
}

func TestNilClient(t *testing.T) {
	t.Parallel()

	var c *Client
	if c.Enabled() {
		t.Error("nil client reports enabled")
	}
	if got := c.Text(context.Background(), "p"); got != "" {
		t.Errorf("nil client Text() = %q", got)
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	r := NewProviderRegistry()
	if _, err := r.GetProvider("missing", ProviderConfig{}); err == nil {
		t.Error("GetProvider(missing) should fail")
	}
	if _, err := r.GetProvider("openai", ProviderConfig{}); err == nil {
		t.Error("GetProvider(openai) without key should fail")
	}
	gen, err := r.GetProvider("openai", ProviderConfig{APIKey: "sk-test", BaseURL: "http://localhost:1"})
	if err != nil || gen == nil {
		t.Fatalf("GetProvider(openai) = %v, %v", gen, err)
	}
}

func TestNewProviderClient(t *testing.T) {
	t.Parallel()

	c, err := NewProviderClient("openai", ProviderConfig{})
	if err != nil || c.Enabled() {
		t.Errorf("without key: enabled = %v, err = %v", c.Enabled(), err)
	}
	c, err = NewProviderClient("", ProviderConfig{APIKey: "sk-test", BaseURL: "http://localhost:1"})
	if err != nil || !c.Enabled() {
		t.Errorf("default provider: enabled = %v, err = %v", c.Enabled(), err)
	}
	if _, err := NewProviderClient("anthropic-local", ProviderConfig{APIKey: "k"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
