package platform

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gamedock/internal/config"
	"gamedock/internal/runtime"
	"gamedock/internal/store"
)

// fakeClock drives the service's notion of time so liveness windows can be
// crossed without sleeping.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// stubRuntime stands in for the process supervisor.
type stubRuntime struct {
	started    []int
	stopped    []int
	startErr   error
	clientOnly bool
}

func (r *stubRuntime) Start(gameID, version string, roomID int, bundlePath string) (*runtime.Endpoint, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.started = append(r.started, roomID)
	if r.clientOnly {
		return nil, nil
	}
	return &runtime.Endpoint{Host: "game-host", Port: 4567}, nil
}

func (r *stubRuntime) Stop(roomID int) {
	r.stopped = append(r.stopped, roomID)
}

func newTestService(t *testing.T) (*Service, *stubRuntime, *fakeClock) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()

	st, err := store.Open(filepath.Join(cfg.Storage.DataDir, "data.json"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rt := &stubRuntime{}
	svc := New(st, rt, cfg, nil)
	clock := newFakeClock()
	svc.now = clock.Now
	return svc, rt, clock
}

// makeBundle builds an in-memory zip with the given files and returns it
// base64 encoded, the way clients upload bundles.
func makeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

const validManifest = `{"entry": "client.py", "server_entry": "server.py", "min_players": 2, "max_players": 4}`

// validBundle is a minimal well-formed upload.
func validBundle(t *testing.T) string {
	t.Helper()
	return makeBundle(t, map[string]string{
		"manifest.json": validManifest,
		"client.py":     "print('client')",
		"server.py":     "print('server')",
	})
}

func seedDeveloper(t *testing.T, svc *Service, name string) {
	t.Helper()
	if err := svc.Register(RoleDeveloper, name, "secret"); err != nil {
		t.Fatalf("register developer %s: %v", name, err)
	}
	if err := svc.Login(RoleDeveloper, name, "secret"); err != nil {
		t.Fatalf("login developer %s: %v", name, err)
	}
}

func seedPlayer(t *testing.T, svc *Service, name string) {
	t.Helper()
	if err := svc.Register(RolePlayer, name, "secret"); err != nil {
		t.Fatalf("register player %s: %v", name, err)
	}
	if err := svc.Login(RolePlayer, name, "secret"); err != nil {
		t.Fatalf("login player %s: %v", name, err)
	}
}

// publishGame uploads a fresh game named "Dice Battle" (slug dice-battle)
// with bounds [2,4] and returns its id.
func publishGame(t *testing.T, svc *Service, developer string) string {
	t.Helper()
	view, err := svc.CreateGame(developer, "Dice Battle", "roll dice", "1.0.0", validBundle(t))
	if err != nil {
		t.Fatalf("publish game: %v", err)
	}
	return view.ID
}

// wantPlatformError asserts err is a *Error with the given status.
func wantPlatformError(t *testing.T, err error, status int) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected a platform error, got %T: %v", err, err)
	}
	if perr.Status != status {
		t.Fatalf("expected status %d, got %d (%s)", status, perr.Status, perr.Message)
	}
	return perr
}
