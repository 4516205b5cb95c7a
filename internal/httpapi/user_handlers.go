package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tau.org/internal/audit"
	"tau.org/internal/auth"
)

type updateUserRequest struct {
	Handle         *string `json:"handle"`
	ProfilePicture *string `json:"profile_picture"`
}

// handleListUsers enumerates all identities. Any authenticated user
// may call this; handles are not secret within the deployment.
func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authenticate(w, r); !ok {
		return
	}
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleUpdateUser patches the target user's handle and profile
// picture. Allowed for the infrastructure admin and for the user
// themselves; absent fields keep their current value.
func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.authenticate(w, r)
	if !ok {
		return
	}

	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "user id must be a UUID")
		return
	}
	if !caller.IsInfrastructureAdmin() && caller.ID != userID {
		writeError(w, r, http.StatusForbidden, "users may only modify themselves")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.auth.FindUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Handle != nil {
		user.Handle = strings.TrimSpace(*req.Handle)
	}
	if req.ProfilePicture != nil {
		picture, err := auth.NewPhotoURL(*req.ProfilePicture)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid picture link")
			return
		}
		user.ProfilePicture = picture
	}

	ctx := auth.ContextWithUser(r.Context(), caller)
	if err := a.auth.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "handle is required")
		case errors.Is(err, auth.ErrConflict):
			writeError(w, r, http.StatusConflict, "a user with this handle already exists")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	_ = audit.LogEvent(ctx, audit.EventUserUpdated, map[string]any{
		"target_user_id": userID.String(),
	})

	writeJSON(w, http.StatusOK, user)
}
