package handlers

import (
	"net/http"
	"time"

	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	httputil "github.com/ordering-helper/backend/pkg/http"
)

// HealthHandlers answers liveness/readiness checks (§6 "GET /health").
type HealthHandlers struct {
	BaseHandlers
}

// NewHealthHandlers builds HealthHandlers.
func NewHealthHandlers(c *container.ServiceContainer) HealthHandlers {
	return HealthHandlers{NewBaseHandlers(c)}
}

// Health reports {status, timestamp} plus a per-service breakdown.
func (h HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, "ok", map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"services":  h.Container.Health(),
	})
}

// Ready answers GET /ready: a narrower check than Health, used by the
// orchestrator to gate traffic on an actual DB connection rather than just
// process liveness.
func (h HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.Container.Ready() {
		httputil.Error(w, errors.ServiceUnavailable("database"))
		return
	}
	httputil.Success(w, "ready", map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}
