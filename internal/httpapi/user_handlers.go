package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medialens.io/internal/auth"
	"medialens.io/internal/ids"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	ClientID string `json:"client_id"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	ClientID *string `json:"client_id"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.users.List(r.Context())
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		email := auth.NormalizeEmail(req.Email)
		if email == "" {
			writeError(w, r, http.StatusBadRequest, "email is required")
			return
		}
		if len(req.Password) < 8 {
			writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "user creation failed")
			return
		}
		now := time.Now().UTC()
		u := &auth.User{
			ID:           ids.New(),
			Email:        email,
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: hash,
			Role:         role,
			Active:       true,
			ClientID:     strings.TrimSpace(req.ClientID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.users.Create(r.Context(), u); err != nil {
			handleUserError(w, r, err)
			return
		}
		a.record(r.Context(), "user.create", "user", u.ID, map[string]string{
			"email": u.Email,
			"role":  string(u.Role),
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", u.ID))
		writeJSON(w, http.StatusCreated, u)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, auth.RoleAdmin); !ok {
		return
	}
	id := resourceID(r.URL.Path, "/v1/users/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		u, err := a.users.Find(r.Context(), id)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := auth.UserUpdate{
			Name:     req.Name,
			Active:   req.Active,
			ClientID: req.ClientID,
		}
		if req.Email != nil {
			email := auth.NormalizeEmail(*req.Email)
			if email == "" {
				writeError(w, r, http.StatusBadRequest, "email cannot be empty")
				return
			}
			upd.Email = &email
		}
		if req.Role != nil {
			role, err := auth.ParseRole(*req.Role)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			upd.Role = &role
		}
		if req.Password != nil {
			if len(*req.Password) < 8 {
				writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
				return
			}
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "user update failed")
				return
			}
			upd.PasswordHash = &hash
		}
		u, err := a.users.Update(r.Context(), id, upd)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		// Deactivation and credential rotation both cut live sessions.
		if (req.Active != nil && !*req.Active) || req.Password != nil {
			if err := a.auth.RevokeAll(r.Context(), id); err != nil {
				handleUserError(w, r, err)
				return
			}
		}
		a.record(r.Context(), "user.update", "user", u.ID, nil)
		writeJSON(w, http.StatusOK, u)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "user operation failed")
	}
}
