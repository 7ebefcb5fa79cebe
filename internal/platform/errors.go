package platform

import (
	"fmt"
	"net/http"
)

// Error is an operation failure reported to clients. Status is the HTTP
// class the failure maps to; Message lands in the response envelope.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func badRequest(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

var (
	// Session layer
	ErrEmptyCredentials = &Error{http.StatusBadRequest, "username and password must not be empty"}
	ErrUsernameTaken    = &Error{http.StatusBadRequest, "username is already taken"}
	ErrBadCredentials   = &Error{http.StatusUnauthorized, "invalid username or password"}
	ErrConcurrentLogin  = &Error{http.StatusUnauthorized, "account is already logged in on another device"}

	// Artifact store
	ErrGameNotFound    = &Error{http.StatusNotFound, "game not found"}
	ErrUnknownGame     = &Error{http.StatusBadRequest, "game not found"}
	ErrGameInactive    = &Error{http.StatusBadRequest, "game has been delisted"}
	ErrNoNewRooms      = &Error{http.StatusBadRequest, "game is not accepting new rooms"}
	ErrNotOwner        = &Error{http.StatusBadRequest, "you do not own this game"}
	ErrNameTaken       = &Error{http.StatusBadRequest, "a game with this name already exists"}
	ErrBoundsChanged   = &Error{http.StatusBadRequest, "player count limits must match the original release"}
	ErrDuplicateVersion = &Error{http.StatusBadRequest, "version already exists, use a new version string"}
	ErrVersionNotFound = &Error{http.StatusNotFound, "requested version does not exist"}
	ErrArtifactMissing = &Error{http.StatusNotFound, "stored bundle is missing on the server"}

	// Room registry
	ErrRoomNotFound    = &Error{http.StatusNotFound, "room not found"}
	ErrRoomGone        = &Error{http.StatusBadRequest, "room not found or already closed"}
	ErrRoomFull        = &Error{http.StatusBadRequest, "room is full"}
	ErrAlreadyInRoom   = &Error{http.StatusBadRequest, "already in this room"}
	ErrAlreadyStarted  = &Error{http.StatusBadRequest, "game has already started"}
	ErrNotMember       = &Error{http.StatusBadRequest, "you are not in this room"}
	ErrNotHost         = &Error{http.StatusBadRequest, "only the host can start the game"}
	ErrBelowMinPlayers = &Error{http.StatusBadRequest, "not enough players to start"}
	ErrRoomCapExceeded = &Error{http.StatusBadRequest, "room limit reached, join an existing room instead"}
	ErrRoomNotStarted  = &Error{http.StatusBadRequest, "room has not started its game"}

	// Accounts
	ErrUnknownDeveloper = &Error{http.StatusBadRequest, "developer not found, please log in again"}
	ErrUnknownPlayer    = &Error{http.StatusBadRequest, "player not found"}
	ErrPlayerNotFound   = &Error{http.StatusNotFound, "player not found"}

	// Ratings
	ErrRatingOutOfRange = &Error{http.StatusBadRequest, "score must be between 1 and 5"}
	ErrNeverPlayed      = &Error{http.StatusBadRequest, "you must play a game before rating it"}
)

// roomEnded reports a finished room's final reason back to the caller
func roomEnded(reason string) *Error {
	if reason == "" {
		reason = "room has ended"
	}
	return &Error{Status: http.StatusBadRequest, Message: reason}
}
