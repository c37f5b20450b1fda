// Package handlers implements the External-Request Handler (C10): it
// adapts inbound HTTP requests across the submission dialects §4.9
// describes into the canonical shapes the rest of the pipeline expects.
package handlers

import (
	"github.com/ordering-helper/backend/pkg/container"
)

// BaseHandlers gives every handler group access to the wired service
// container without each one repeating constructor boilerplate.
type BaseHandlers struct {
	Container *container.ServiceContainer
}

// NewBaseHandlers builds a BaseHandlers.
func NewBaseHandlers(c *container.ServiceContainer) BaseHandlers {
	return BaseHandlers{Container: c}
}
