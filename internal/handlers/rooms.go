package handlers

import (
	"net/http"

	"gamedock/internal/platform"
	"gamedock/internal/store"
)

type roomRequest struct {
	Player string `json:"player"`
	GameID string `json:"game_id"`
}

// listRooms handles GET /rooms
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.ListRooms()
	if err != nil {
		h.fail(w, err)
		return
	}
	if rooms == nil {
		rooms = []*store.Room{}
	}
	h.ok(w, "ok", rooms)
}

// getRoom handles GET /rooms/{id}; finished rooms stay visible until GC so
// clients can show the final reason.
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := roomParam(r)
	if !ok {
		h.fail(w, platform.ErrRoomNotFound)
		return
	}
	room, err := h.svc.GetRoom(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "ok", room)
}

// createRoom handles POST /rooms
func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RolePlayer, req.Player) {
		return
	}
	h.svc.SessionHeartbeat(platform.RolePlayer, req.Player)

	room, err := h.svc.CreateRoom(req.Player, req.GameID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "room created", room)
}

// roomAction wraps the member mutations (join/leave/start/close/heartbeat)
// that share the same gate and shape.
func (h *Handler) roomAction(message string, action func(player string, roomID int) (*store.Room, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomRequest
		if !h.readBody(w, r, &req) {
			return
		}
		if !h.requireSession(w, platform.RolePlayer, req.Player) {
			return
		}
		h.svc.SessionHeartbeat(platform.RolePlayer, req.Player)

		id, ok := roomParam(r)
		if !ok {
			h.fail(w, platform.ErrRoomGone)
			return
		}
		room, err := action(req.Player, id)
		if err != nil {
			h.fail(w, err)
			return
		}
		h.ok(w, message, room)
	}
}

// markPlayed handles POST /rooms/{id}/played
func (h *Handler) markPlayed(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !h.readBody(w, r, &req) {
		return
	}
	if !h.requireSession(w, platform.RolePlayer, req.Player) {
		return
	}
	h.svc.SessionHeartbeat(platform.RolePlayer, req.Player)

	id, ok := roomParam(r)
	if !ok {
		h.fail(w, platform.ErrRoomGone)
		return
	}
	receipt, err := h.svc.MarkRoomPlayed(req.Player, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, "play count recorded", receipt)
}
