package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"medialens.io/internal/audit"
	"medialens.io/internal/auth"
	"medialens.io/internal/catalog"
	"medialens.io/internal/clients"
	"medialens.io/internal/insights"
	"medialens.io/internal/obs"
	"medialens.io/internal/stream"
)

// ReadyProbe reports whether the backing store answers (database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps collects everything the HTTP layer serves.
type Deps struct {
	Auth     *auth.Service
	Users    auth.UserStore
	Clients  *clients.Service
	Insights *insights.Service
	Catalog  *catalog.Service
	Activity audit.Store
	Stream   *stream.Stream
	Ready    ReadyProbe
	Version  string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	users      auth.UserStore
	clients    *clients.Service
	insights   *insights.Service
	catalog    *catalog.Service
	activity   audit.Store
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string
}

func New(deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       deps.Auth,
		users:      deps.Users,
		clients:    deps.Clients,
		insights:   deps.Insights,
		catalog:    deps.Catalog,
		activity:   deps.Activity,
		stream:     deps.Stream,
		readyProbe: deps.Ready,
		version:    deps.Version,
	}

	// health/ready/metrics
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	// session
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// back office
	a.mux.HandleFunc("/v1/clients", a.handleClients)
	a.mux.HandleFunc("/v1/clients/", a.handleClientResource)
	a.mux.HandleFunc("/v1/insights", a.handleInsights)
	a.mux.HandleFunc("/v1/insights/", a.handleInsightResource)
	a.mux.HandleFunc("/v1/insights/stream", a.Stream)
	a.mux.HandleFunc("/v1/outlets", a.handleOutlets)
	a.mux.HandleFunc("/v1/outlets/", a.handleOutletResource)
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/activity", a.handleActivity)
	a.mux.HandleFunc("/v1/dashboard/stats", a.handleDashboardStats)

	// dashboard pages
	a.mux.HandleFunc("/login", a.handleLoginPage)
	a.mux.HandleFunc("/", a.handleIndex)

	return a
}

const (
	maxRequestBody = 1 << 20 // 1 MiB

	// Edge rate limit per client IP. Generous next to the login throttle,
	// which guards credentials separately.
	edgeRateBurst     = 100
	edgeRatePerSecond = 50
)

// Handler returns the fully wrapped handler for the server. RequestID wraps
// Logging so every request line carries the id it echoes.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = Logging(h)
	h = RequestID(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, maxRequestBody)
	h = RateLimit(h, edgeRateBurst, edgeRatePerSecond)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "medialens-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// record appends one activity entry and emits the audit log line. Activity
// persistence failure must not fail the mutation itself; it is logged.
func (a *API) record(ctx context.Context, action, resourceType, resourceID string, meta map[string]string) {
	fields := make(map[string]any, len(meta)+2)
	fields["resource_type"] = resourceType
	fields["resource_id"] = resourceID
	for k, v := range meta {
		fields[k] = v
	}
	_ = audit.LogEvent(ctx, action, fields)

	if a.activity == nil {
		return
	}
	entry := &audit.Entry{
		ID:           newEntryID(),
		OccurredAt:   time.Now().UTC(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		RequestID:    audit.RequestIDFromContext(ctx),
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry.ActorID = principal.ID
		entry.ActorEmail = principal.Email
	}
	if err := a.activity.Append(ctx, entry); err != nil {
		obs.LogJSON(map[string]any{
			"level": "error",
			"msg":   "activity append failed",
			"error": err.Error(),
		})
	}
}
