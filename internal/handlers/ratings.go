package handlers

import (
	"gamedock/internal/platform"
	"net/http"
)

// addRating handles POST /ratings
func (h *Handler) addRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player  string `json:"player"`
		GameID  string `json:"game_id"`
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RolePlayer, req.Player) {
		return
	}
	h.svc.SessionHeartbeat(platform.RolePlayer, req.Player)

	if err := h.svc.AddRating(req.Player, req.GameID, req.Score, req.Comment); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "rating recorded", nil)
}
