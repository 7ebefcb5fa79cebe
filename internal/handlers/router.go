package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gamedock/internal/platform"
)

// Routes mounts the full HTTP surface on a chi router. Middleware is wired
// by the caller so tests can mount a bare router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Developer sessions
	r.Route("/dev", func(r chi.Router) {
		r.Post("/register", h.register(platform.RoleDeveloper))
		r.Post("/login", h.login(platform.RoleDeveloper))
		r.Post("/logout", h.logout(platform.RoleDeveloper))
		r.Post("/heartbeat", h.sessionHeartbeat(platform.RoleDeveloper))
	})

	// Player sessions and profile
	r.Route("/player", func(r chi.Router) {
		r.Post("/register", h.register(platform.RolePlayer))
		r.Post("/login", h.login(platform.RolePlayer))
		r.Post("/logout", h.logout(platform.RolePlayer))
		r.Post("/heartbeat", h.sessionHeartbeat(platform.RolePlayer))
		r.Get("/me", h.playerMe)
	})
	r.Get("/players", h.listPlayers)

	// Game catalog
	r.Route("/games", func(r chi.Router) {
		r.Get("/", h.listGames)
		r.Post("/", h.createGame)
		r.Get("/{id}", h.gameDetail)
		r.Put("/{id}", h.updateGame)
		r.Delete("/{id}", h.removeGame)
		r.Get("/{id}/download", h.downloadGame)
		r.Get("/{id}/integrity", h.gameIntegrity)
	})

	// Rooms
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.listRooms)
		r.Post("/", h.createRoom)
		r.Get("/{id}", h.getRoom)
		r.Post("/{id}/join", h.roomAction("joined room", h.svc.JoinRoom))
		r.Post("/{id}/leave", h.roomAction("left room", h.svc.LeaveRoom))
		r.Post("/{id}/start", h.roomAction("game started", h.svc.StartRoom))
		r.Post("/{id}/close", h.roomAction("room closed", h.svc.CloseRoom))
		r.Post("/{id}/heartbeat", h.roomAction("ok", h.svc.RoomHeartbeat))
		r.Post("/{id}/played", h.markPlayed)
	})

	// Ratings
	r.Post("/ratings", h.addRating)

	// Health checks (no auth)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
