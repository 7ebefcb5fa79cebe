package runtime

import (
	"errors"
	"fmt"
)

// ErrStartupTimeout means the child never accepted a connection within the
// probe budget and was terminated.
var ErrStartupTimeout = errors.New("game server startup timed out")

// SpawnError means the child exited before becoming ready
type SpawnError struct {
	ExitCode int
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("game server exited before becoming ready (exit %d)", e.ExitCode)
}

// MissingEntryError means the manifest's server_entry is not in the bundle
type MissingEntryError struct {
	Entry string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("server entry not found in bundle: %s", e.Entry)
}
