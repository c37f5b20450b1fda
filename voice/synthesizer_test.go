package voice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ordering-helper/backend/pkg/config"
)

func TestSynthesizeWithoutAPIKeyFallsBack(t *testing.T) {
	dir := t.TempDir()
	s := New(config.TTSConfig{ScratchDir: dir, MaxFileAge: time.Hour}, config.StorageConfig{}, nil)

	result := s.Synthesize(context.Background(), "老闆,我要牛肉麵一份,謝謝。", 1.0)

	if !result.IsFallback {
		t.Error("expected fallback result when no TTS API key is configured")
	}
	if result.Text == "" {
		t.Error("expected fallback result to carry the original text")
	}
}

func TestUploadWithoutStorageClientFails(t *testing.T) {
	dir := t.TempDir()
	s := New(config.TTSConfig{ScratchDir: dir}, config.StorageConfig{BucketName: "voices"}, nil)

	localPath := filepath.Join(dir, "test.wav")
	if err := os.WriteFile(localPath, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}

	if _, err := s.Upload(context.Background(), localPath, 1); err == nil {
		t.Error("expected Upload to fail without a configured storage client")
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  time.Duration
	}{
		{"empty text clamps to minimum", "", minDuration},
		{"short text clamps to minimum", "你好", minDuration},
		{"long text is at least the minimum", "老闆,我要牛肉麵一份和珍珠奶茶兩杯,謝謝。", minDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateDuration(tt.text)
			if got < tt.min {
				t.Errorf("EstimateDuration(%q) = %v, want >= %v", tt.text, got, tt.min)
			}
		})
	}
}

func TestEstimateDurationScalesWithLength(t *testing.T) {
	short := EstimateDuration("一二三")
	long := EstimateDuration("一二三四五六七八九十一二三四五六七八九十")
	if long <= short {
		t.Errorf("expected longer text to estimate a longer duration: short=%v long=%v", short, long)
	}
}

func TestEvictStaleRemovesOnlyAgedAudioFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(config.TTSConfig{ScratchDir: dir, MaxFileAge: time.Minute}, config.StorageConfig{}, nil)

	stale := filepath.Join(dir, "old.wav")
	fresh := filepath.Join(dir, "new.wav")
	other := filepath.Join(dir, "notes.txt")

	for _, p := range []string{stale, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write fixture file: %v", err)
		}
	}

	oldTime := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatalf("failed to backdate fixture file: %v", err)
	}

	s.evictStale()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected the aged .wav file to be evicted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected the fresh .wav file to survive eviction")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("expected non-audio files to be left untouched")
	}
}

func TestScratchDirExposesConfiguredPath(t *testing.T) {
	s := New(config.TTSConfig{ScratchDir: "/tmp/voices"}, config.StorageConfig{}, nil)
	if s.ScratchDir() != "/tmp/voices" {
		t.Errorf("expected ScratchDir() to return the configured path, got %q", s.ScratchDir())
	}
}
