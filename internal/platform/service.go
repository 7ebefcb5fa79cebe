package platform

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gamedock/internal/config"
	"gamedock/internal/runtime"
	"gamedock/internal/store"
)

// User roles. Every session-gated operation is scoped to one of these.
const (
	RoleDeveloper = "developer"
	RolePlayer    = "player"
)

// Runtime is the supervisor surface the room registry drives. Satisfied by
// *runtime.Supervisor; tests substitute stubs.
type Runtime interface {
	Start(gameID, version string, roomID int, bundlePath string) (*runtime.Endpoint, error)
	Stop(roomID int)
}

// Service implements the platform operations over the persistent store.
// All mutations run as single store transactions; reads go through
// snapshots and never write.
type Service struct {
	store *store.Store
	rt    Runtime
	cfg   *config.Config
	log   *zap.Logger

	now func() time.Time // overridable in tests
}

// New wires the service
func New(st *store.Store, rt Runtime, cfg *config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: st,
		rt:    rt,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// Store exposes the underlying store (for tests and operational resets)
func (s *Service) Store() *store.Store { return s.store }

func (s *Service) unix() int64 { return s.now().Unix() }

// cloneJSON deep-copies a value out of the live document so no caller ever
// holds a reference into store state.
func cloneJSON[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("platform: value not serializable: %v", err))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("platform: value not round-trippable: %v", err))
	}
	return out
}
