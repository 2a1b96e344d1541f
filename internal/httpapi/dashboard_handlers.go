package httpapi

import (
	"net/http"

	"medialens.io/internal/catalog"
)

func (a *API) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	// Any authenticated role may read the dashboard.
	if _, ok := a.requireRole(w, r); !ok {
		return
	}

	articleStats, err := a.insights.Stats(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats unavailable")
		return
	}
	outletCounts, err := a.catalog.CountByKind(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats unavailable")
		return
	}
	clientCount, err := a.clients.Count(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats unavailable")
		return
	}

	outlets := make(map[string]int, len(outletCounts))
	for _, kind := range catalog.Kinds {
		outlets[string(kind)] = outletCounts[kind]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": articleStats,
		"outlets":  outlets,
		"clients":  clientCount,
	})
}
