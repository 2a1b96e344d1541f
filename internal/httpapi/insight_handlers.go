package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medialens.io/internal/auth"
	"medialens.io/internal/insights"
)

type ingestInsightRequest struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	OutletID    string     `json:"outlet_id"`
	ClientID    string     `json:"client_id"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
}

type triageRequest struct {
	Status string `json:"status"`
}

func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleGeneral, auth.RoleDataEntry); !ok {
			return
		}
		limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 200)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := a.insights.List(r.Context(), insights.ListFilter{
			Status:   insights.Status(r.URL.Query().Get("status")),
			ClientID: r.URL.Query().Get("client_id"),
			Limit:    limit,
			Before:   r.URL.Query().Get("before"),
		})
		if err != nil {
			handleInsightError(w, r, err)
			return
		}
		resp := map[string]any{"items": list}
		if len(list) == limit {
			resp["next_before"] = list[len(list)-1].ID
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleDataEntry); !ok {
			return
		}
		var req ingestInsightRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		in := insights.IngestInput{
			Title:    req.Title,
			URL:      req.URL,
			OutletID: req.OutletID,
			ClientID: req.ClientID,
			Summary:  req.Summary,
		}
		if req.PublishedAt != nil {
			in.PublishedAt = *req.PublishedAt
		}
		ins, created, err := a.insights.Ingest(r.Context(), in)
		if err != nil {
			handleInsightError(w, r, err)
			return
		}
		if !created {
			writeJSON(w, http.StatusOK, ins)
			return
		}
		a.record(r.Context(), "insight.ingest", "insight", ins.ID, map[string]string{"url": ins.URL})
		w.Header().Set("Location", fmt.Sprintf("/v1/insights/%s", ins.ID))
		writeJSON(w, http.StatusCreated, ins)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleInsightResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/insights/"), "/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleGeneral, auth.RoleDataEntry); !ok {
			return
		}
		ins, err := a.insights.Get(r.Context(), parts[0])
		if err != nil {
			handleInsightError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ins)
	case len(parts) == 2 && parts[1] == "triage":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		principal, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleGeneral, auth.RoleDataEntry)
		if !ok {
			return
		}
		var req triageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ins, err := a.insights.Triage(r.Context(), parts[0], insights.Status(req.Status), principal.ID)
		if err != nil {
			handleInsightError(w, r, err)
			return
		}
		a.record(r.Context(), "insight.triage", "insight", ins.ID, map[string]string{
			"status": string(ins.Status),
		})
		writeJSON(w, http.StatusOK, ins)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func handleInsightError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, insights.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, insights.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, insights.ErrTriaged):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "insight operation failed")
	}
}
