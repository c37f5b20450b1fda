// Package lifecycle implements Resource Lifecycle (C12): best-effort
// eviction of stale scratch voice files (§4.12, §5 "tolerant of concurrent
// delete").
package lifecycle

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ordering-helper/backend/logger"
)

// Janitor evicts aged files from the local scratch voice directory. The
// Voice Synthesizer (C6) already runs this inline before every synthesis
// call; Janitor additionally exposes it for a standalone periodic sweep.
type Janitor struct {
	scratchDir string
	maxAge     time.Duration
}

// New builds a Janitor.
func New(scratchDir string, maxAge time.Duration) *Janitor {
	return &Janitor{scratchDir: scratchDir, maxAge: maxAge}
}

// Sweep removes .wav/.mp3 files older than maxAge, tolerating files removed
// concurrently by another process (§5 "best-effort").
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.scratchDir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-j.maxAge)
	evicted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".wav") && !strings.HasSuffix(name, ".mp3") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Already gone or unreadable; another sweeper may have won the race.
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.scratchDir, name)); err == nil {
				evicted++
			}
		}
	}

	if evicted > 0 {
		logger.Info("scratch voice directory swept", map[string]interface{}{
			"evicted": evicted,
			"dir":     j.scratchDir,
		})
	}
	return evicted
}

// Run sweeps on the given interval until ctx-like stop channel closes.
// Callers typically invoke this once at startup alongside the inline sweep
// already performed by each Synthesize call.
func (j *Janitor) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-stop:
			return
		}
	}
}
