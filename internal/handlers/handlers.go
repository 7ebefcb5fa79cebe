package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gamedock/internal/platform"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc *platform.Service
	log *zap.Logger
}

// New creates a new handler
func New(svc *platform.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// envelope is the uniform response shape: {success, message, data?}
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Success: status < 400,
		Message: message,
		Data:    data,
	}); err != nil {
		h.log.Warn("response encode failed", zap.Error(err))
	}
}

func (h *Handler) ok(w http.ResponseWriter, message string, data interface{}) {
	h.respond(w, http.StatusOK, message, data)
}

// fail maps a platform error onto its status class; anything unexpected
// becomes a 500 without leaking details.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var perr *platform.Error
	if errors.As(err, &perr) {
		h.respond(w, perr.Status, perr.Message, nil)
		return
	}
	h.log.Error("internal error", zap.Error(err))
	h.respond(w, http.StatusInternalServerError, "internal error", nil)
}

// decodeBody reads a JSON body into dst, treating an empty body as an
// empty object the way clients expect.
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeBody(r, dst); err != nil {
		h.respond(w, http.StatusBadRequest, "invalid JSON body", nil)
		return false
	}
	return true
}

// requireSession is the authorization gate: a stale or missing session is
// rejected with 401. The check is read-only; callers refresh the session
// heartbeat explicitly afterwards.
func (h *Handler) requireSession(w http.ResponseWriter, role, username string) bool {
	if username == "" || !h.svc.IsLoggedIn(role, username) {
		label := "player"
		if role == platform.RoleDeveloper {
			label = "developer"
		}
		h.respond(w, http.StatusUnauthorized, "please log in with a "+label+" account first", nil)
		return false
	}
	return true
}

// roomParam parses the numeric room id from the URL
func roomParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
