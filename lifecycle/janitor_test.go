package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepEvictsOnlyAgedAudioFiles(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, time.Minute)

	stale := filepath.Join(dir, "old.mp3")
	fresh := filepath.Join(dir, "new.wav")
	other := filepath.Join(dir, "readme.txt")

	for _, p := range []string{stale, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write fixture file: %v", err)
		}
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to backdate fixture file: %v", err)
	}

	evicted := j.Sweep()
	if evicted != 1 {
		t.Errorf("expected exactly 1 eviction, got %d", evicted)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected the aged file to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected the fresh file to survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("expected the non-audio file to be left alone")
	}
}

func TestSweepToleratesMissingDirectory(t *testing.T) {
	j := New("/nonexistent/path/does/not/exist", time.Minute)
	if evicted := j.Sweep(); evicted != 0 {
		t.Errorf("expected 0 evictions for a missing directory, got %d", evicted)
	}
}

func TestSweepIsANoOpOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, time.Minute)
	if evicted := j.Sweep(); evicted != 0 {
		t.Errorf("expected 0 evictions for an empty directory, got %d", evicted)
	}
}
