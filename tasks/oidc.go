// Package tasks verifies the OIDC bearer token the task dispatcher attaches
// to /orders/process-task invocations, so only the configured invoker
// service account can trigger the background pipeline (§4.8, §6
// "Background task contract").
package tasks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/pkg/errors"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// oidcClaims is the subset of a Google-signed OIDC id_token this service
// checks (§6: "aud = configured base URL" and "email = configured invoker
// service account").
type oidcClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Verifier validates the OIDC token on incoming process-task requests.
type Verifier struct {
	jwks               keyfunc.Keyfunc
	audience           string
	invokerServiceAcct string
}

// NewVerifier fetches and caches Google's public JWKS for signature
// verification.
func NewVerifier(ctx context.Context, cfg config.TasksConfig) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{googleJWKSURL})
	if err != nil {
		return nil, errors.InitializationError("oidc verifier", err)
	}
	return &Verifier{
		jwks:               k,
		audience:           cfg.CloudRunServiceURL,
		invokerServiceAcct: cfg.InvokerServiceAccount,
	}, nil
}

// VerifyRequest extracts and verifies the Bearer token from r, checking
// audience and signer email (§6).
func (v *Verifier) VerifyRequest(r *http.Request) error {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return errors.Unauthorized("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	return v.Verify(tokenString)
}

// Verify checks a raw OIDC token string against the configured audience
// and invoker service account.
func (v *Verifier) Verify(tokenString string) error {
	var claims oidcClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, v.jwks.Keyfunc, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		return errors.Unauthorized("invalid oidc token")
	}

	aud, err := claims.GetAudience()
	if err != nil || !containsString(aud, v.audience) {
		return errors.Unauthorized(fmt.Sprintf("unexpected audience: %v", aud))
	}

	if claims.Email != v.invokerServiceAcct || !claims.EmailVerified {
		return errors.Unauthorized(fmt.Sprintf("unexpected invoker identity: %s", claims.Email))
	}

	return nil
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
