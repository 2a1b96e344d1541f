package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"medialens.io/internal/auth"
	"medialens.io/internal/catalog"
)

type createOutletRequest struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Website string `json:"website"`
}

type updateOutletRequest struct {
	Kind    *string `json:"kind"`
	Name    *string `json:"name"`
	Website *string `json:"website"`
	Active  *bool   `json:"active"`
}

func (a *API) handleOutlets(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleDataEntry); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.catalog.List(r.Context(), r.URL.Query().Get("kind"))
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})
	case http.MethodPost:
		var req createOutletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		o, err := a.catalog.Create(r.Context(), req.Kind, req.Name, req.Website)
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		a.record(r.Context(), "outlet.create", "outlet", o.ID, map[string]string{
			"kind": string(o.Kind),
			"slug": o.Slug,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/outlets/%s", o.ID))
		writeJSON(w, http.StatusCreated, o)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOutletResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleDataEntry); !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/outlets/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		o, err := a.catalog.Get(r.Context(), id)
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case http.MethodPut:
		var req updateOutletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := catalog.Update{
			Name:    req.Name,
			Website: req.Website,
			Active:  req.Active,
		}
		if req.Kind != nil {
			k := catalog.Kind(*req.Kind)
			upd.Kind = &k
		}
		o, err := a.catalog.Update(r.Context(), id, upd)
		if err != nil {
			handleCatalogError(w, r, err)
			return
		}
		a.record(r.Context(), "outlet.update", "outlet", o.ID, nil)
		writeJSON(w, http.StatusOK, o)
	case http.MethodDelete:
		if err := a.catalog.Delete(r.Context(), id); err != nil {
			handleCatalogError(w, r, err)
			return
		}
		a.record(r.Context(), "outlet.delete", "outlet", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "outlet operation failed")
	}
}
