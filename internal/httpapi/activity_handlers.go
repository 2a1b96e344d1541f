package httpapi

import (
	"net/http"

	"medialens.io/internal/auth"
)

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireRole(w, r, auth.RoleAdmin); !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.activity.List(r.Context(), limit, r.URL.Query().Get("before"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "activity listing failed")
		return
	}
	resp := map[string]any{"items": entries}
	if len(entries) == limit {
		resp["next_before"] = entries[len(entries)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}
