// Package routing wires the HTTP Edge's (C10) route table: the real
// contractual endpoints of §6, plus the legacy submission dialects.
package routing

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ordering-helper/backend/pkg/container"
	"github.com/ordering-helper/backend/pkg/errors"
	"github.com/ordering-helper/backend/pkg/handlers"
	httputil "github.com/ordering-helper/backend/pkg/http"
	"github.com/ordering-helper/backend/pkg/middleware"
	"github.com/ordering-helper/backend/security"
)

// Router groups routes by functionality.
type Router struct {
	mux       *mux.Router
	container *container.ServiceContainer
	rateLimit *security.RateLimiter
}

// NewRouter creates a new router with the service container.
func NewRouter(c *container.ServiceContainer) *Router {
	return &Router{
		mux:       mux.NewRouter(),
		container: c,
		rateLimit: security.NewRateLimiter(),
	}
}

// SetupRoutes configures every route for the application (§6).
func (r *Router) SetupRoutes() {
	r.mux.Use(mux.MiddlewareFunc(middleware.Logging()))
	r.mux.Use(mux.MiddlewareFunc(middleware.ErrorRecovery()))
	r.mux.Use(mux.MiddlewareFunc(middleware.CORS(r.container.Config().Security.CORSAllowedOrigins)))

	health := handlers.NewHealthHandlers(r.container)
	r.mux.HandleFunc("/health", health.Health).Methods("GET")
	r.mux.HandleFunc("/ready", health.Ready).Methods("GET")

	respCache := r.container.ResponseCache().Middleware()

	storeH := handlers.NewStoreHandlers(r.container)
	r.mux.Handle("/stores", respCache(http.HandlerFunc(storeH.List))).Methods("GET")
	r.mux.HandleFunc("/stores/check-partner-status", storeH.CheckPartnerStatus).Methods("GET")
	r.mux.HandleFunc("/stores/resolve", storeH.Resolve).Methods("GET")

	menuH := handlers.NewMenuHandlers(r.container)
	r.mux.Handle("/menu/{store_id}", respCache(http.HandlerFunc(menuH.Get))).Methods("GET")
	r.mux.Handle("/menu/process-ocr", r.rateLimit.RateLimitMiddleware(http.HandlerFunc(menuH.ProcessOCR))).Methods("POST")

	orderH := handlers.NewOrderHandlers(r.container)
	r.mux.Handle("/orders/quick", r.rateLimit.RateLimitMiddleware(http.HandlerFunc(orderH.Quick))).Methods("POST")
	r.mux.HandleFunc("/orders/status/{order_id}", orderH.Status).Methods("GET")
	r.mux.Handle("/orders", r.rateLimit.RateLimitMiddleware(http.HandlerFunc(orderH.Legacy))).Methods("POST")
	r.mux.HandleFunc("/orders/simple", orderH.Legacy).Methods("POST")
	r.mux.HandleFunc("/orders/ocr", orderH.Legacy).Methods("POST")
	r.mux.HandleFunc("/orders/ocr-optimized", orderH.Legacy).Methods("POST")
	r.mux.Handle("/orders/process-task", r.oidcGuard(http.HandlerFunc(orderH.ProcessTask))).Methods("POST")
	// The task dispatcher's documented path is namespaced under /api; alias it
	// to the same handler so both forms work (§6 "Background task contract").
	r.mux.Handle("/api/orders/process-task", r.oidcGuard(http.HandlerFunc(orderH.ProcessTask))).Methods("POST")

	voiceH := handlers.NewVoiceHandlers(r.container)
	r.mux.HandleFunc("/voices/{filename}", voiceH.Get).Methods("GET")
}

// oidcGuard verifies the Authorization bearer token against the configured
// Cloud Run audience and invoker service account before delegating to next
// (§6 "Background task contract"). A missing verifier (no invoker service
// account configured) rejects every request rather than failing open.
func (r *Router) oidcGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		verifier := r.container.TasksVerifier()
		if verifier == nil {
			httputil.Error(w, errors.ServiceUnavailable("background task authentication"))
			return
		}
		if err := verifier.VerifyRequest(req); err != nil {
			httputil.Error(w, errors.Unauthorized("invalid task credentials"))
			return
		}
		next.ServeHTTP(w, req)
	})
}

// NotFoundHandler returns a 404 response.
func (r *Router) NotFoundHandler(w http.ResponseWriter, req *http.Request) {
	httputil.NotFound(w, "endpoint")
}

// MethodNotAllowedHandler returns a 405 response.
func (r *Router) MethodNotAllowedHandler(w http.ResponseWriter, req *http.Request) {
	httputil.Error(w, errors.New(
		errors.CodeValidation,
		"Method not allowed",
		errors.SeverityWarning,
	).WithHTTPCode(http.StatusMethodNotAllowed))
}

// SetupErrorHandlers sets custom 404 and 405 handlers.
func (r *Router) SetupErrorHandlers() {
	r.mux.NotFoundHandler = http.HandlerFunc(r.NotFoundHandler)
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(r.MethodNotAllowedHandler)
}

// GetMux returns the underlying gorilla mux router.
func (r *Router) GetMux() *mux.Router {
	return r.mux
}

// ListRoutes returns all configured routes for debugging.
func (r *Router) ListRoutes() []string {
	routes := []string{}
	r.mux.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		t, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		routes = append(routes, t)
		return nil
	})
	return routes
}
