package push

import (
	"context"
	"testing"

	"github.com/ordering-helper/backend/pkg/config"
)

func TestValidUserID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid line user id", "U" + repeat("0123456789abcdef", 2), true},
		{"missing U prefix", repeat("0123456789abcdef", 2), false},
		{"too short", "U0123456789abcdef", false},
		{"uppercase hex rejected", "U" + repeat("0123456789ABCDEF", 2), false},
		{"guest placeholder rejected", "temp_guest_12345", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidUserID(tt.id); got != tt.want {
				t.Errorf("ValidUserID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestNewWithoutChannelTokenYieldsNoOpPusher(t *testing.T) {
	p, err := New(config.LineConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected a non-nil Pusher")
	}

	// A no-op Pusher must never panic even for a well-formed user id.
	p.Push(context.Background(), "U"+repeat("0123456789abcdef", 2), "order summary", "中文摘要", 100, "", 0)
}

func TestPushSkipsMalformedUserIDWithoutPanicking(t *testing.T) {
	p, err := New(config.LineConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Push(context.Background(), "not-a-line-id", "order summary", "中文摘要", 100, "", 0)
}
