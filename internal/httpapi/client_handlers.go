package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"medialens.io/internal/auth"
	"medialens.io/internal/clients"
)

type createClientRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

type updateClientRequest struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contact_email"`
	Active       *bool   `json:"active"`
}

func (a *API) handleClients(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleGeneral); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.clients.List(r.Context())
		if err != nil {
			handleClientError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})
	case http.MethodPost:
		var req createClientRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.clients.Create(r.Context(), req.Name, req.ContactEmail)
		if err != nil {
			handleClientError(w, r, err)
			return
		}
		a.record(r.Context(), "client.create", "client", c.ID, map[string]string{"name": c.Name})
		w.Header().Set("Location", fmt.Sprintf("/v1/clients/%s", c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleClientResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin, auth.RoleGeneral); !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/clients/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := a.clients.Get(r.Context(), id)
		if err != nil {
			handleClientError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var req updateClientRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.clients.Update(r.Context(), id, clients.Update{
			Name:         req.Name,
			ContactEmail: req.ContactEmail,
			Active:       req.Active,
		})
		if err != nil {
			handleClientError(w, r, err)
			return
		}
		a.record(r.Context(), "client.update", "client", c.ID, nil)
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := a.clients.Delete(r.Context(), id); err != nil {
			handleClientError(w, r, err)
			return
		}
		a.record(r.Context(), "client.delete", "client", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleClientError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clients.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, clients.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, clients.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, clients.ErrInUse):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "client operation failed")
	}
}
