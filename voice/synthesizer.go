// Package voice implements the Voice Synthesizer (C6): it calls the
// external TTS backend for a Mandarin sentence, writes the audio to a local
// scratch directory, uploads it to object storage, and evicts stale scratch
// files before every synthesis call.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/pkg/config"
)

const (
	minRate = 0.5
	maxRate = 2.0
	msPerCJKChar = 500 * time.Millisecond
	minDuration  = 1 * time.Second
)

// Result is what synthesize() returns: either a real audio file or a
// fallback (§4.6).
type Result struct {
	LocalPath  string
	DurationMs int64
	Text       string
	IsFallback bool
}

// Synthesizer owns the scratch directory, the TTS backend, and the object
// storage client used to publish audio files.
type Synthesizer struct {
	httpClient   *http.Client
	storageCli   *storage.Client
	apiKey       string
	voice        string
	scratchDir   string
	maxFileAge   time.Duration
	memoryBudget int64
	bucket       string
	region       string
	baseURL      string
}

// New builds a Synthesizer. storageCli may be nil in tests that never reach
// Upload.
func New(cfg config.TTSConfig, storageCfg config.StorageConfig, storageCli *storage.Client) *Synthesizer {
	return &Synthesizer{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		storageCli:   storageCli,
		apiKey:       cfg.APIKey,
		voice:        cfg.Voice,
		scratchDir:   cfg.ScratchDir,
		maxFileAge:   cfg.MaxFileAge,
		memoryBudget: cfg.MemoryBudget,
		bucket:       storageCfg.BucketName,
		region:       storageCfg.Region,
		baseURL:      storageCfg.BaseURL,
	}
}

// ScratchDir exposes the local scratch directory so the HTTP edge can serve
// a just-synthesized file back by filename before it is evicted or uploaded.
func (s *Synthesizer) ScratchDir() string {
	return s.scratchDir
}

type ttsRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Rate  float64 `json:"speaking_rate"`
}

type ttsResponse struct {
	AudioContent string `json:"audio_content"` // base64, written raw to disk
	DurationMs   int64  `json:"duration_ms"`
	Format       string `json:"format"` // "wav" or "mp3"
}

// Synthesize invokes the TTS backend and writes the result to the scratch
// directory as <uuid>.wav/.mp3 (§4.6). It evicts stale scratch files first.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, rate float64) Result {
	s.evictStale()

	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}

	if s.apiKey == "" || s.overMemoryBudget() {
		logger.Warn("tts synthesis falling back to text-only delivery", map[string]interface{}{
			"has_api_key": s.apiKey != "",
		})
		return Result{Text: text, IsFallback: true}
	}

	body, err := json.Marshal(ttsRequest{Text: text, Voice: s.voice, Rate: rate})
	if err != nil {
		return Result{Text: text, IsFallback: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://texttospeech.googleapis.com/v1/text:synthesize?key="+s.apiKey, bytes.NewReader(body))
	if err != nil {
		return Result{Text: text, IsFallback: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warn("tts backend unreachable, falling back to text-only delivery", map[string]interface{}{"error": err.Error()})
		return Result{Text: text, IsFallback: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("tts backend returned non-200, falling back to text-only delivery", map[string]interface{}{"status": resp.StatusCode})
		return Result{Text: text, IsFallback: true}
	}

	var tr ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Result{Text: text, IsFallback: true}
	}

	ext := "wav"
	if strings.EqualFold(tr.Format, "mp3") {
		ext = "mp3"
	}

	if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
		return Result{Text: text, IsFallback: true}
	}

	audioBytes, err := base64.StdEncoding.DecodeString(tr.AudioContent)
	if err != nil {
		return Result{Text: text, IsFallback: true}
	}

	filename := uuid.New().String() + "." + ext
	localPath := filepath.Join(s.scratchDir, filename)
	if err := os.WriteFile(localPath, audioBytes, 0o644); err != nil {
		return Result{Text: text, IsFallback: true}
	}

	info, err := os.Stat(localPath)
	if err != nil || info.Size() == 0 {
		return Result{Text: text, IsFallback: true}
	}

	durationMs := tr.DurationMs
	if durationMs <= 0 {
		durationMs = EstimateDuration(text).Milliseconds()
	}

	return Result{LocalPath: localPath, DurationMs: durationMs}
}

// overMemoryBudget reports whether heap usage exceeds 80% of the configured
// budget (§4.6, §5 "the synthesis path additionally inspects process
// memory").
func (s *Synthesizer) overMemoryBudget() bool {
	if s.memoryBudget <= 0 {
		return false
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) > 0.8*float64(s.memoryBudget)
}

// Upload publishes a local scratch file to object storage under the
// configured bucket and returns its public HTTPS URL (§4.6).
func (s *Synthesizer) Upload(ctx context.Context, localPath string, orderID int64) (string, error) {
	if s.storageCli == nil || s.bucket == "" {
		return "", fmt.Errorf("object storage not configured")
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("orders/%d/%s", orderID, filepath.Base(localPath))
	bkt := s.storageCli.Bucket(s.bucket)
	w := bkt.Object(objectName).NewWriter(ctx)
	w.ContentType = contentTypeFor(localPath)

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		if isNotFoundBucket(err) {
			if cerr := s.createBucket(ctx); cerr != nil {
				logger.Warn("voice bucket missing and could not be created", map[string]interface{}{"error": cerr.Error()})
				return "", cerr
			}
			return s.Upload(ctx, localPath, orderID)
		}
		return "", err
	}

	if err := bkt.Object(objectName).ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		logger.Warn("could not set public-read ACL on uploaded voice file", map[string]interface{}{"error": err.Error()})
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectName), nil
}

func (s *Synthesizer) createBucket(ctx context.Context) error {
	return s.storageCli.Bucket(s.bucket).Create(ctx, "", &storage.BucketAttrs{Location: s.region})
}

func isNotFoundBucket(err error) bool {
	return strings.Contains(err.Error(), "notFound") || strings.Contains(err.Error(), "404")
}

func contentTypeFor(path string) string {
	if strings.HasSuffix(path, ".mp3") {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// EstimateDuration estimates playback duration at ~0.5s per character of
// text (every rune counts, punctuation included), clamped to a 1s minimum
// (§4.6).
func EstimateDuration(text string) time.Duration {
	count := 0
	for range text {
		count++
	}
	d := time.Duration(count) * msPerCJKChar
	if d < minDuration {
		return minDuration
	}
	return d
}

// evictStale removes .wav/.mp3 scratch files older than maxFileAge (§4.12).
func (s *Synthesizer) evictStale() {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-s.maxFileAge)
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
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(s.scratchDir, name))
		}
	}
}
