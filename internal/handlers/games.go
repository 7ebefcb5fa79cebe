package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"gamedock/internal/platform"
)

// listGames handles GET /games?all=0|1
func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "1"
	h.ok(w, "ok", h.svc.ListGames(includeInactive))
}

// gameDetail handles GET /games/{id}
func (h *Handler) gameDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GameDetail(chi.URLParam(r, "id"), r.URL.Query().Get("player"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "ok", detail)
}

type uploadGameRequest struct {
	Developer   string `json:"developer"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	FileData    string `json:"file_data"`
	Notes       string `json:"notes"`
}

// createGame handles POST /games
func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req uploadGameRequest
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RoleDeveloper, req.Developer) {
		return
	}
	h.svc.SessionHeartbeat(platform.RoleDeveloper, req.Developer)

	var missing []string
	for field, val := range map[string]string{
		"name":        req.Name,
		"description": req.Description,
		"version":     req.Version,
		"file_data":   req.FileData,
	} {
		if val == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		h.respond(w, http.StatusBadRequest,
			fmt.Sprintf("missing fields: %s", strings.Join(sorted(missing), ", ")), nil)
		return
	}

	game, err := h.svc.CreateGame(req.Developer, req.Name, req.Description, req.Version, req.FileData)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "game published", game)
}

// updateGame handles PUT /games/{id}
func (h *Handler) updateGame(w http.ResponseWriter, r *http.Request) {
	var req uploadGameRequest
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RoleDeveloper, req.Developer) {
		return
	}
	h.svc.SessionHeartbeat(platform.RoleDeveloper, req.Developer)

	if req.Version == "" || req.FileData == "" {
		h.respond(w, http.StatusBadRequest, "missing version or file data", nil)
		return
	}
	game, err := h.svc.UpdateGameVersion(req.Developer, chi.URLParam(r, "id"), req.Version, req.FileData, req.Notes)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "version uploaded", game)
}

// removeGame handles DELETE /games/{id} (downlist, not deletion)
func (h *Handler) removeGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Developer string `json:"developer"`
	}
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RoleDeveloper, req.Developer) {
		return
	}
	h.svc.SessionHeartbeat(platform.RoleDeveloper, req.Developer)

	retained, err := h.svc.RemoveGame(req.Developer, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "game delisted, no new rooms accepted"
	if retained > 0 {
		msg = fmt.Sprintf("game delisted, no new rooms accepted; active rooms retained: %d", retained)
	}
	h.ok(w, msg, nil)
}

// downloadGame handles GET /games/{id}/download?version=
func (h *Handler) downloadGame(w http.ResponseWriter, r *http.Request) {
	blob, err := h.svc.DownloadGame(chi.URLParam(r, "id"), r.URL.Query().Get("version"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "ok", blob)
}

// gameIntegrity handles GET /games/{id}/integrity?version=
func (h *Handler) gameIntegrity(w http.ResponseWriter, r *http.Request) {
	manifest, err := h.svc.GameIntegrity(chi.URLParam(r, "id"), r.URL.Query().Get("version"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "ok", manifest)
}

func sorted(vals []string) []string {
	out := append([]string(nil), vals...)
	sort.Strings(out)
	return out
}
