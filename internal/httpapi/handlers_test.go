package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"medialens.io/internal/audit"
	"medialens.io/internal/auth"
	"medialens.io/internal/catalog"
	"medialens.io/internal/clients"
	"medialens.io/internal/ids"
	"medialens.io/internal/insights"
	"medialens.io/internal/stream"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type testEnv struct {
	*apiClient
	users   auth.Store
	handler http.Handler
}

func seedUser(t *testing.T, store auth.Store, email, password string, role auth.Role) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	u := &auth.User{
		ID:           ids.New(),
		Email:        email,
		Name:         "Test " + string(role),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func newTestAPI(t *testing.T, opts ...auth.ServiceOption) *testEnv {
	t.Helper()

	store := auth.NewMemoryStore()
	svc, err := auth.NewService(store, testSecret, opts...)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	events := stream.New()
	api := New(Deps{
		Auth:     svc,
		Users:    store.Users(),
		Clients:  clients.NewService(clients.NewMemory()),
		Insights: insights.NewService(insights.NewMemory(), events),
		Catalog:  catalog.NewService(catalog.NewMemory()),
		Activity: audit.NewMemoryStore(),
		Stream:   events,
		Version:  "test",
	})

	handler := api.Handler()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &testEnv{
		apiClient: &apiClient{baseURL: srv.URL, client: client, t: t},
		users:     store,
		handler:   handler,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email, password string) sessionResponse {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	var payload sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token.AccessToken == "" {
		c.t.Fatal("empty access token issued")
	}
	return payload
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLoginWrongCredentialsBody(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "admin@medialens.io", "correct-horse", auth.RoleAdmin)

	resp := env.post("/v1/auth/login", map[string]string{
		"email":    "admin@medialens.io",
		"password": "wrong",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != invalidCredentialsMsg {
		t.Fatalf("expected generic error message, got %v", body["error"])
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestAPI(t)
	resp := env.post("/v1/auth/login", map[string]string{"email": "a@b.c"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionFlow(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "ops@medialens.io", "password123", auth.RoleGeneral)

	session := env.login("ops@medialens.io", "password123")
	if session.User.Role != auth.RoleGeneral {
		t.Fatalf("unexpected role: %s", session.User.Role)
	}

	me := env.get("/v1/auth/me", nil, bearerHeader(session.Token.AccessToken))
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me status: %d", me.StatusCode)
	}
	principal := decode[auth.Principal](t, me)
	if principal.Email != "ops@medialens.io" {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	// Rotate and make sure the old refresh token dies.
	refreshed := env.post("/v1/auth/refresh", map[string]string{
		"refresh_token": session.Token.RefreshToken,
	}, nil)
	if refreshed.StatusCode != http.StatusOK {
		t.Fatalf("refresh status: %d", refreshed.StatusCode)
	}
	fresh := decode[sessionResponse](t, refreshed)

	replay := env.post("/v1/auth/refresh", map[string]string{
		"refresh_token": session.Token.RefreshToken,
	}, nil)
	defer replay.Body.Close()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh should 401, got %d", replay.StatusCode)
	}

	logout := env.post("/v1/auth/logout", map[string]string{
		"refresh_token": fresh.Token.RefreshToken,
	}, bearerHeader(fresh.Token.AccessToken))
	defer logout.Body.Close()
	if logout.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status: %d", logout.StatusCode)
	}
}

func TestClientCRUDFlow(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "admin@medialens.io", "password123", auth.RoleAdmin)
	token := env.login("admin@medialens.io", "password123").Token.AccessToken

	created := env.post("/v1/clients", map[string]string{
		"name":          "Acme Media",
		"contact_email": "press@acme.kz",
	}, bearerHeader(token))
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", created.StatusCode)
	}
	c := decode[clients.Client](t, created)

	got := env.get("/v1/clients/"+c.ID, nil, bearerHeader(token))
	if got.StatusCode != http.StatusOK {
		t.Fatalf("get status: %d", got.StatusCode)
	}
	got.Body.Close()

	updated := env.do(http.MethodPut, "/v1/clients/"+c.ID, map[string]any{
		"active": false,
	}, bearerHeader(token))
	if updated.StatusCode != http.StatusOK {
		t.Fatalf("update status: %d", updated.StatusCode)
	}
	if u := decode[clients.Client](t, updated); u.Active {
		t.Fatal("update did not apply")
	}

	deleted := env.do(http.MethodDelete, "/v1/clients/"+c.ID, nil, bearerHeader(token))
	defer deleted.Body.Close()
	if deleted.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %d", deleted.StatusCode)
	}
}

func TestInsightIngestAndTriageFlow(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "entry@medialens.io", "password123", auth.RoleDataEntry)
	token := env.login("entry@medialens.io", "password123").Token.AccessToken

	body := map[string]string{
		"title": "Budget approved",
		"url":   "https://example.kz/news/1",
	}
	created := env.post("/v1/insights", body, bearerHeader(token))
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("ingest status: %d", created.StatusCode)
	}
	ins := decode[insights.Insight](t, created)

	// Idempotent resubmission returns 200 with the same row.
	repeat := env.post("/v1/insights", body, bearerHeader(token))
	if repeat.StatusCode != http.StatusOK {
		t.Fatalf("repeat ingest status: %d", repeat.StatusCode)
	}
	if again := decode[insights.Insight](t, repeat); again.ID != ins.ID {
		t.Fatalf("idempotency broken: %s vs %s", again.ID, ins.ID)
	}

	triaged := env.post("/v1/insights/"+ins.ID+"/triage", map[string]string{
		"status": "approved",
	}, bearerHeader(token))
	if triaged.StatusCode != http.StatusOK {
		t.Fatalf("triage status: %d", triaged.StatusCode)
	}
	if out := decode[insights.Insight](t, triaged); out.Status != insights.StatusApproved {
		t.Fatalf("unexpected status: %s", out.Status)
	}

	conflict := env.post("/v1/insights/"+ins.ID+"/triage", map[string]string{
		"status": "dismissed",
	}, bearerHeader(token))
	defer conflict.Body.Close()
	if conflict.StatusCode != http.StatusConflict {
		t.Fatalf("second triage should 409, got %d", conflict.StatusCode)
	}
}

func TestOutletRoutesRequireRole(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "viewer@medialens.io", "password123", auth.RoleClientUser)
	seedUser(t, env.users, "entry@medialens.io", "password123", auth.RoleDataEntry)

	viewer := env.login("viewer@medialens.io", "password123").Token.AccessToken
	entry := env.login("entry@medialens.io", "password123").Token.AccessToken

	forbidden := env.get("/v1/outlets", nil, bearerHeader(viewer))
	defer forbidden.Body.Close()
	if forbidden.StatusCode != http.StatusForbidden {
		t.Fatalf("client_user should get 403, got %d", forbidden.StatusCode)
	}

	created := env.post("/v1/outlets", map[string]string{
		"kind": "tv",
		"name": "Khabar 24",
	}, bearerHeader(entry))
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create outlet status: %d", created.StatusCode)
	}
	if o := decode[catalog.Outlet](t, created); o.Slug != "khabar-24" {
		t.Fatalf("unexpected slug: %s", o.Slug)
	}
}

func TestUserAdminIsAdminOnly(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "admin@medialens.io", "password123", auth.RoleAdmin)
	seedUser(t, env.users, "ops@medialens.io", "password123", auth.RoleGeneral)

	admin := env.login("admin@medialens.io", "password123").Token.AccessToken
	ops := env.login("ops@medialens.io", "password123").Token.AccessToken

	denied := env.get("/v1/users", nil, bearerHeader(ops))
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("general should get 403, got %d", denied.StatusCode)
	}

	created := env.post("/v1/users", map[string]string{
		"email":    "new@medialens.io",
		"name":     "New User",
		"password": "password123",
		"role":     "data_entry",
	}, bearerHeader(admin))
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create user status: %d", created.StatusCode)
	}
	u := decode[auth.User](t, created)

	// Deactivation invalidates the new user's live session.
	newToken := env.login("new@medialens.io", "password123").Token.AccessToken
	deact := env.do(http.MethodPut, "/v1/users/"+u.ID, map[string]any{"active": false}, bearerHeader(admin))
	deact.Body.Close()
	if deact.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status: %d", deact.StatusCode)
	}
	me := env.get("/v1/auth/me", nil, bearerHeader(newToken))
	defer me.Body.Close()
	if me.StatusCode != http.StatusUnauthorized {
		t.Fatalf("deactivated session should 401, got %d", me.StatusCode)
	}
}

func TestDashboardStatsAnyRole(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "admin@medialens.io", "password123", auth.RoleAdmin)
	seedUser(t, env.users, "viewer@medialens.io", "password123", auth.RoleClientUser)
	admin := env.login("admin@medialens.io", "password123").Token.AccessToken
	for _, name := range []string{"Acme", "Globex"} {
		created := env.post("/v1/clients", map[string]string{"name": name}, bearerHeader(admin))
		created.Body.Close()
		if created.StatusCode != http.StatusCreated {
			t.Fatalf("create client %s: %d", name, created.StatusCode)
		}
	}

	token := env.login("viewer@medialens.io", "password123").Token.AccessToken
	resp := env.get("/v1/dashboard/stats", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status: %d", resp.StatusCode)
	}
	stats := decode[map[string]any](t, resp)
	if _, ok := stats["articles"]; !ok {
		t.Fatalf("missing articles block: %v", stats)
	}
	if got, ok := stats["clients"].(float64); !ok || got != 2 {
		t.Fatalf("expected 2 clients, got %v", stats["clients"])
	}
}

func TestActivityLogRecordsMutations(t *testing.T) {
	env := newTestAPI(t)
	seedUser(t, env.users, "admin@medialens.io", "password123", auth.RoleAdmin)
	token := env.login("admin@medialens.io", "password123").Token.AccessToken

	created := env.post("/v1/clients", map[string]string{"name": "Acme"}, bearerHeader(token))
	created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", created.StatusCode)
	}

	resp := env.get("/v1/activity", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity status: %d", resp.StatusCode)
	}
	payload := decode[struct {
		Items []audit.Entry `json:"items"`
	}](t, resp)
	if len(payload.Items) == 0 {
		t.Fatal("expected at least one activity entry")
	}
	found := false
	for _, e := range payload.Items {
		if e.Action == "client.create" && e.ActorEmail == "admin@medialens.io" {
			found = true
		}
	}
	if !found {
		t.Fatalf("client.create entry missing: %+v", payload.Items)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestAPI(t)

	health := env.get("/healthz", nil, nil)
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", health.StatusCode)
	}
	ready := env.get("/readyz", nil, nil)
	defer ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("readyz status: %d", ready.StatusCode)
	}
}
