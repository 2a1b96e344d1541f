package httpapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"medialens.io/internal/auth"
)

func TestAPIRequestsWithoutTokenGet401(t *testing.T) {
	env := newTestAPI(t)

	resp := env.get("/v1/clients", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected JSON error body, got %s", ct)
	}
}

func TestPagePathsRedirectToLogin(t *testing.T) {
	env := newTestAPI(t)

	resp := env.get("/dashboard/insights", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != "/login" {
		t.Fatalf("expected /login, got %s", loc.Path)
	}
	if loc.Query().Get("next") != "/dashboard/insights" {
		t.Fatalf("original path not preserved: %s", loc.RawQuery)
	}
}

func TestAuthenticatedLoginPageRedirectsHome(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "ops@medialens.io", "password123", auth.RoleGeneral)
	token := env.login("ops@medialens.io", "password123").Token.AccessToken

	resp := env.get("/login", nil, map[string]string{
		"Cookie": sessionCookie + "=" + token,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %s", loc)
	}
}

func TestExpiredTokenBehavesLikeAbsent(t *testing.T) {
	now := time.Now()
	clock := &now
	env := newTestAPI(t, auth.WithClock(func() time.Time { return *clock }), auth.WithAccessTTL(time.Minute))
	seedUser(t, env.users, "ops@medialens.io", "password123", auth.RoleGeneral)
	token := env.login("ops@medialens.io", "password123").Token.AccessToken

	live := env.get("/v1/clients", nil, bearerHeader(token))
	live.Body.Close()
	if live.StatusCode != http.StatusForbidden && live.StatusCode != http.StatusOK {
		t.Fatalf("live token unexpectedly rejected: %d", live.StatusCode)
	}

	later := now.Add(2 * time.Minute)
	clock = &later

	expired := env.get("/v1/clients", nil, bearerHeader(token))
	defer expired.Body.Close()
	absent := env.get("/v1/clients", nil, nil)
	defer absent.Body.Close()
	if expired.StatusCode != absent.StatusCode {
		t.Fatalf("expired (%d) and absent (%d) tokens diverge", expired.StatusCode, absent.StatusCode)
	}
	if expired.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", expired.StatusCode)
	}
}

func TestCookieSessionWorksForAPI(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "ops@medialens.io", "password123", auth.RoleGeneral)
	token := env.login("ops@medialens.io", "password123").Token.AccessToken

	resp := env.get("/v1/auth/me", nil, map[string]string{
		"Cookie": sessionCookie + "=" + token,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cookie session rejected: %d", resp.StatusCode)
	}
}

func TestFallbackIdentityLogin(t *testing.T) {
	env := newTestAPI(t, auth.WithFallbacks([]auth.FallbackIdentity{{
		Email:    "rescue@medialens.io",
		Password: "break-glass-secret",
		Name:     "Recovery administrator",
		Role:     auth.RoleAdmin,
	}}))

	session := env.login("rescue@medialens.io", "break-glass-secret")
	if session.User.Role != auth.RoleAdmin {
		t.Fatalf("unexpected role: %s", session.User.Role)
	}

	// The fallback session passes admin-only gates.
	resp := env.get("/v1/users", nil, bearerHeader(session.Token.AccessToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fallback admin denied: %d", resp.StatusCode)
	}
}
