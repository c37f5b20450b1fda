package translate

import (
	"context"
	"testing"
	"time"

	"github.com/ordering-helper/backend/pkg/config"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want string
	}{
		{"empty falls back to en", "", "en"},
		{"unknown tag falls back to en", "xx-YY", "en"},
		{"simplified chinese by cn suffix", "zh-CN", "zh-cn"},
		{"simplified chinese by hans script", "zh-Hans", "zh-cn"},
		{"traditional chinese default", "zh-TW", "zh-tw"},
		{"bare zh defaults to traditional", "zh", "zh-tw"},
		{"region subtag collapsed", "en-US", "en"},
		{"already-short tag passes through", "ja", "ja"},
		{"mixed case and whitespace", "  JA  ", "ja"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.tag); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tags := []string{"zh-CN", "EN-us", "ja", "", "zh-Hans-CN"}
	for _, tag := range tags {
		once := Normalize(tag)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: got %q then %q", tag, once, twice)
		}
	}
}

func TestIsChinese(t *testing.T) {
	if !IsChinese("zh-tw") {
		t.Error("expected zh-tw to be Chinese")
	}
	if !IsChinese("ZH-CN") {
		t.Error("expected case-insensitive match")
	}
	if IsChinese("ja") {
		t.Error("expected ja to not be Chinese")
	}
}

func TestTranslateWithNoAPIKeyReturnsInputUnchanged(t *testing.T) {
	f := New(config.TranslationConfig{APIKey: "", Timeout: time.Second}, nil, time.Minute)

	got := f.Translate(context.Background(), "牛肉麵", "en")
	if got != "牛肉麵" {
		t.Errorf("expected fail-open passthrough, got %q", got)
	}
}

func TestTranslateSkipsChineseTargets(t *testing.T) {
	f := New(config.TranslationConfig{APIKey: "fake-key", Timeout: time.Second}, nil, time.Minute)

	got := f.Translate(context.Background(), "hello", "zh-tw")
	if got != "hello" {
		t.Errorf("expected text unchanged when target is Chinese, got %q", got)
	}
}

func TestTranslateBatchPreservesOrder(t *testing.T) {
	f := New(config.TranslationConfig{APIKey: ""}, nil, time.Minute)

	in := []string{"a", "b", "c"}
	out := f.TranslateBatch(context.Background(), in, "en")
	if len(out) != len(in) {
		t.Fatalf("expected %d results, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: expected %q, got %q", i, in[i], out[i])
		}
	}
}
