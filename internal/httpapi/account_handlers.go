package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/service"
)

func (a *API) handleCheckSetup(w http.ResponseWriter, r *http.Request) {
	required, err := a.service.SetupRequired(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"setupRequired": required})
}

func (a *API) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req domain.SetupRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.Setup(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, r, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Authenticate(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountInactive) {
			a.logger.Warn("login rejected", zap.String("client", clientKey(r)), zap.Error(err))
		}
		a.writeServiceError(w, r, err)
		return
	}

	resp, expiresAt, err := a.auth.Issue(user)
	if err != nil {
		a.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	http.SetCookie(w, a.auth.sessionCookie(resp.AccessToken, expiresAt))
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, a.auth.clearedCookie())
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []domain.UserAccount{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req domain.StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if actor, ok := service.ActorFromContext(r.Context()); ok && actor.UserID == id && req.IsActive != nil && !*req.IsActive {
		a.writeError(w, r, http.StatusBadRequest, errors.New("cannot deactivate your own account"))
		return
	}
	if err := a.service.SetUserActive(r.Context(), id, req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteUser(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
