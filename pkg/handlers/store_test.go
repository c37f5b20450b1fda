package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/pkg/container"
)

func testContainer(t *testing.T) *container.ServiceContainer {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Engine: "sqlite3", DSN: ":memory:", AutoMigrate: false},
		Vision:   config.VisionConfig{Timeout: time.Second},
		TTS:      config.TTSConfig{ScratchDir: t.TempDir(), MaxFileAge: time.Hour},
		Logger:   config.LoggerConfig{Level: "error", LogDir: t.TempDir()},
		Cache:    config.CacheConfig{TranslationTTL: time.Hour},
	}
	c, err := container.NewServiceContainer(cfg)
	if err != nil {
		t.Fatalf("failed to build test container: %v", err)
	}
	t.Cleanup(func() { c.Shutdown(nil) })
	return c
}

func TestCheckPartnerStatusAlwaysReturns200WithoutPlaceID(t *testing.T) {
	h := NewStoreHandlers(testContainer(t))

	req := httptest.NewRequest(http.MethodGet, "/stores/check-partner-status?name=Some+Shop", nil)
	rec := httptest.NewRecorder()

	h.CheckPartnerStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["is_partner"] != false {
		t.Errorf("expected is_partner=false when place_id is absent, got %v", body["is_partner"])
	}
	if body["has_menu"] != false {
		t.Errorf("expected has_menu=false when place_id is absent, got %v", body["has_menu"])
	}
}

func TestResolveRejectsMalformedPlaceID(t *testing.T) {
	h := NewStoreHandlers(testContainer(t))

	req := httptest.NewRequest(http.MethodGet, "/stores/resolve?place_id=not-a-valid-key", nil)
	rec := httptest.NewRecorder()

	h.Resolve(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
}
