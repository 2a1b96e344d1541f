package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"medialens.io/internal/auth"
)

const (
	authHeader    = "Authorization"
	bearer        = "Bearer "
	sessionCookie = "ml_session"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/metrics",
	"/healthz",
	"/readyz",
	"/login",
	"/",
}
var publicPrefixes = []string{
	"/assets/",
}

// withAuth validates the session carrier on every non-public request. An
// absent, malformed or expired token behaves identically: API paths get a
// 401, dashboard pages get a redirect to the login page with the original
// path preserved.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)

		if isPublicPath(r.URL.Path) {
			// An authenticated visit to the login page goes straight to the
			// dashboard.
			if r.URL.Path == "/login" && token != "" {
				if _, err := a.auth.AuthenticateToken(r.Context(), token); err == nil {
					http.Redirect(w, r, "/", http.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		if token == "" {
			a.rejectUnauthenticated(w, r, "missing token")
			return
		}

		principal, err := a.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				a.rejectUnauthenticated(w, r, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, msg string) {
	if isPagePath(r.URL.Path) {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
		return
	}
	writeError(w, r, http.StatusUnauthorized, msg)
}

// requireRole enforces the route's role set after authentication. Admin
// passes every gate; an empty set admits any authenticated caller.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, required ...auth.Role) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	if err := auth.Authorize(principal, required...); err != nil {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return auth.Principal{}, false
	}
	return principal, true
}

// sessionToken prefers the Authorization header and falls back to the
// dashboard session cookie.
func sessionToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(authHeader)); header != "" {
		if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			return strings.TrimSpace(header[len(bearer):])
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// isPagePath: everything outside /v1 is a dashboard page for redirect
// purposes.
func isPagePath(path string) bool {
	return !strings.HasPrefix(path, "/v1/")
}
