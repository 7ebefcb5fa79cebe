package handlers

import (
	"net/http"

	"gamedock/internal/platform"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// register handles POST /dev/register and /player/register
func (h *Handler) register(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !h.readBody(w, r, &req) {
			return
		}
		if err := h.svc.Register(role, req.Username, req.Password); err != nil {
			h.fail(w, err)
			return
		}
		h.ok(w, role+" registered", nil)
	}
}

// login handles POST /dev/login and /player/login
func (h *Handler) login(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !h.readBody(w, r, &req) {
			return
		}
		if err := h.svc.Login(role, req.Username, req.Password); err != nil {
			h.fail(w, err)
			return
		}
		h.ok(w, "login successful", nil)
	}
}

// logout handles POST /dev/logout and /player/logout; always succeeds
func (h *Handler) logout(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if !h.readBody(w, r, &req) {
			return
		}
		h.svc.Logout(role, req.Username)
		h.ok(w, "logged out", nil)
	}
}

// sessionHeartbeat handles the dedicated heartbeat endpoints. These only
// touch the session table, never room state.
func (h *Handler) sessionHeartbeat(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if !h.readBody(w, r, &req) {
			return
		}
		if !h.requireSession(w, role, req.Username) {
			return
		}
		h.svc.SessionHeartbeat(role, req.Username)
		h.ok(w, "ok", nil)
	}
}

// playerMe handles GET /player/me
func (h *Handler) playerMe(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if !h.requireSession(w, platform.RolePlayer, username) {
		return
	}
	profile, err := h.svc.PlayerProfile(username)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "ok", profile)
}

// listPlayers handles GET /players
func (h *Handler) listPlayers(w http.ResponseWriter, r *http.Request) {
	h.ok(w, "ok", h.svc.ListPlayers())
}
