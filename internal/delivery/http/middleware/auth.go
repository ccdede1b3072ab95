package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventmanager/internal/delivery/http/helpers"
	"eventmanager/internal/domain"
	"eventmanager/internal/validation"
)

type contextKey string

const principalKey contextKey = "principal"

// SetPrincipal returns a context carrying the authenticated caller. Used by auth middleware.
func SetPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// Authenticator validates Bearer tokens and stores the caller in the request context.
type Authenticator struct {
	Verifier domain.TokenVerifier
	Catalog  *validation.Catalog
	Logger   *slog.Logger
}

func NewAuthenticator(verifier domain.TokenVerifier, catalog *validation.Catalog, logger *slog.Logger) *Authenticator {
	return &Authenticator{Verifier: verifier, Catalog: catalog, Logger: logger}
}

// RequireAuth rejects requests without a valid Bearer token with 401 and does not call next.
func (a *Authenticator) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return a.authenticate(next, true)
}

// OptionalAuth lets anonymous requests through. A token that is present but invalid
// is still rejected with 401.
func (a *Authenticator) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return a.authenticate(next, false)
}

func (a *Authenticator) authenticate(next http.HandlerFunc, required bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			if required {
				a.reject(w, r, "missing authorization header")
				return
			}
			next(w, r)
			return
		}
		const prefix = "Bearer "
		if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			a.reject(w, r, "invalid authorization format")
			return
		}
		token := strings.TrimSpace(auth[len(prefix):])
		if token == "" {
			a.reject(w, r, "missing token")
			return
		}
		principal, err := a.Verifier.Verify(token)
		if err != nil {
			a.Logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
			a.reject(w, r, "invalid or expired token")
			return
		}
		next(w, r.WithContext(SetPrincipal(r.Context(), principal)))
	}
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, reason string) {
	a.Logger.DebugContext(r.Context(), "unauthenticated request", "path", r.URL.Path, "reason", reason)
	h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized,
		a.Catalog.Message(h.LocaleFromContext(r.Context()), validation.MsgUnauthorized))
}
