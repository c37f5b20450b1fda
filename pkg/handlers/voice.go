package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	httputil "github.com/ordering-helper/backend/pkg/http"
)

// voiceCacheControl is sent with every voice file this endpoint serves; the
// object-storage upload sets no Cache-Control of its own.
const voiceCacheControl = "public, max-age=1800"

// VoiceHandlers serves synthesized voice files directly from the scratch
// directory (§4.10, §4.12): most clients are handed the object-storage URL
// from the order status response, but this endpoint covers the window
// before an upload completes or when object storage is unavailable.
type VoiceHandlers struct {
	BaseHandlers
}

// NewVoiceHandlers builds VoiceHandlers.
func NewVoiceHandlers(c *container.ServiceContainer) VoiceHandlers {
	return VoiceHandlers{NewBaseHandlers(c)}
}

// Get answers GET /voices/{filename}.
func (h VoiceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
		httputil.Error(w, errors.BadRequest("invalid filename"))
		return
	}

	contentType := ""
	switch {
	case strings.HasSuffix(filename, ".wav"):
		contentType = "audio/wav"
	case strings.HasSuffix(filename, ".mp3"):
		contentType = "audio/mpeg"
	default:
		httputil.Error(w, errors.BadRequest("unsupported voice file extension"))
		return
	}

	scratchDir := h.Container.Synthesizer().ScratchDir()
	path := filepath.Join(scratchDir, filename)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		httputil.Error(w, errors.NotFound("voice file"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", voiceCacheControl)
	http.ServeFile(w, r, path)
}
