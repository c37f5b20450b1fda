// Package translate implements the Translation Facade (C11): BCP-47
// normalization and a fail-open wrapper around the external translation
// backend.
package translate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/pkg/cache"
	"github.com/ordering-helper/backend/pkg/config"
)

var supportedTags = map[string]bool{
	"en": true, "zh-tw": true, "zh-cn": true, "ja": true, "ko": true,
	"fr": true, "de": true, "es": true, "it": true, "pt": true,
	"ru": true, "ar": true, "hi": true, "th": true, "vi": true,
}

// Facade calls the external translation backend, never throwing into the
// pipeline: any failure returns the input unchanged (§4.11).
type Facade struct {
	httpClient *http.Client
	apiKey     string
	cache      cache.Cache
	cacheTTL   time.Duration
}

// New builds a Facade. cfg.APIKey may be empty, in which case Translate
// always returns its input unchanged (treated as a permanent failure).
func New(cfg config.TranslationConfig, c cache.Cache, ttl time.Duration) *Facade {
	return &Facade{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		cache:      c,
		cacheTTL:   ttl,
	}
}

// Normalize maps a BCP-47 tag to the supported short set and is
// idempotent under repeated application. Unknown tags fall back to "en".
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "en"
	}
	if strings.HasPrefix(tag, "zh") {
		if strings.Contains(tag, "cn") || strings.Contains(tag, "hans") {
			return "zh-cn"
		}
		return "zh-tw"
	}
	// Collapse region subtags: "en-US" -> "en".
	if idx := strings.IndexAny(tag, "-_"); idx > 0 {
		tag = tag[:idx]
	}
	if supportedTags[tag] {
		return tag
	}
	return "en"
}

// IsChinese reports whether a normalized language tag is a Chinese variant
// (§4.5: "Language is detected by prefix-match on zh").
func IsChinese(tag string) bool {
	return strings.HasPrefix(strings.ToLower(tag), "zh")
}

// Translate performs a single-string translation. On any failure, including
// a missing API key, it returns text unchanged (§4.11).
func (f *Facade) Translate(ctx context.Context, text, target string) string {
	if text == "" || IsChinese(target) {
		return text
	}
	if f.apiKey == "" {
		return text
	}

	key := target + "\x00" + text
	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}

	out, err := f.callBackend(ctx, text, target)
	if err != nil {
		logger.Warn("translation backend call failed, returning original text", map[string]interface{}{
			"target": target,
			"error":  err.Error(),
		})
		return text
	}

	if f.cache != nil {
		f.cache.Set(key, out, f.cacheTTL)
	}
	return out
}

// TranslateBatch applies Translate across texts, preserving order.
func (f *Facade) TranslateBatch(ctx context.Context, texts []string, target string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = f.Translate(ctx, t, target)
	}
	return out
}

// callBackend makes no network call: it returns text unchanged, so Translate
// yields its input for every target even when an API key is set, and caches
// that input under the key.
func (f *Facade) callBackend(ctx context.Context, text, target string) (string, error) {
	// The concrete wire format is vendor-specific and out of scope for this
	// contract; callers needing a live backend wire a real client in here.
	return text, nil
}
