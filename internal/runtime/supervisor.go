package runtime

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Endpoint is the address a spawned game server accepts connections on
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

const (
	probeBudget  = 3 * time.Second
	probeBackoff = 50 * time.Millisecond
	probeDial    = 300 * time.Millisecond
)

// Supervisor launches and tracks one game-server child process per room.
// Its handle map is in-memory only; after a platform restart the room
// registry finishes any rooms that were left in_game.
type Supervisor struct {
	mu      sync.Mutex
	handles map[int]*handle

	root       string // extraction cache root
	bindHost   string
	publicHost string
	log        *zap.Logger
}

type handle struct {
	cmd  *exec.Cmd
	port int
	dir  string
	done chan struct{} // closed when the child exits
	exit int
}

// New creates a supervisor extracting bundles under root and binding game
// servers to bindHost. publicHost is what clients are told to connect to;
// when empty or a loopback/wildcard address the resolved hostname is used.
func New(root, bindHost, publicHost string, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	if bindHost == "" {
		bindHost = "0.0.0.0"
	}
	return &Supervisor{
		handles:    make(map[int]*handle),
		root:       root,
		bindHost:   bindHost,
		publicHost: publicHost,
		log:        log,
	}
}

// Start extracts the bundle, spawns its server entry and waits for the
// child to accept TCP connections. A nil endpoint with a nil error means
// the bundle is client-only (no server_entry) and the platform's own
// address should be advertised instead.
func (s *Supervisor) Start(gameID, version string, roomID int, bundlePath string) (*Endpoint, error) {
	dir, err := s.extract(bundlePath, gameID, version)
	if err != nil {
		return nil, err
	}

	serverEntry, err := readServerEntry(dir)
	if err != nil {
		return nil, err
	}
	if serverEntry == "" {
		return nil, nil
	}
	entryPath := filepath.Join(dir, filepath.FromSlash(serverEntry))
	if _, err := os.Stat(entryPath); err != nil {
		return nil, &MissingEntryError{Entry: serverEntry}
	}

	port, err := allocatePort(s.bindHost)
	if err != nil {
		return nil, fmt.Errorf("allocate port: %w", err)
	}

	cmd := commandFor(entryPath)
	cmd.Args = append(cmd.Args, "--room", strconv.Itoa(roomID), "--port", strconv.Itoa(port))
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", serverEntry, err)
	}

	h := &handle{cmd: cmd, port: port, dir: dir, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		h.exit = exitCode(err)
		close(h.done)
	}()

	s.log.Info("game server spawned",
		zap.String("game", gameID),
		zap.String("version", version),
		zap.Int("room", roomID),
		zap.Int("port", port),
		zap.Int("pid", cmd.Process.Pid))

	if err := waitReady(h, port); err != nil {
		s.terminate(h)
		s.log.Warn("game server failed readiness",
			zap.Int("room", roomID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.handles[roomID] = h
	s.mu.Unlock()

	return &Endpoint{Host: s.resolvePublicHost(), Port: port}, nil
}

// Stop terminates the game server for roomID if one is tracked. Idempotent;
// kill failures are swallowed.
func (s *Supervisor) Stop(roomID int) {
	s.mu.Lock()
	h := s.handles[roomID]
	delete(s.handles, roomID)
	s.mu.Unlock()
	if h == nil {
		return
	}
	s.terminate(h)
	s.log.Info("game server stopped", zap.Int("room", roomID))
}

// StopAll terminates every tracked game server. Used on shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	hs := make([]*handle, 0, len(s.handles))
	for id, h := range s.handles {
		hs = append(hs, h)
		delete(s.handles, id)
	}
	s.mu.Unlock()
	for _, h := range hs {
		s.terminate(h)
	}
}

// Running reports whether a live handle exists for roomID
func (s *Supervisor) Running(roomID int) bool {
	s.mu.Lock()
	h := s.handles[roomID]
	s.mu.Unlock()
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) terminate(h *handle) {
	select {
	case <-h.done:
		return // already exited
	default:
	}
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		h.cmd.Process.Kill()
		return
	}
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		h.cmd.Process.Kill()
	}
}

// extract unpacks the bundle under root/<game>/<version>, reusing the
// directory when a previous room already extracted this version.
func (s *Supervisor) extract(bundlePath, gameID, version string) (string, error) {
	dir := filepath.Join(s.root, gameID, version)
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}
	zr, err := zip.OpenReader(bundlePath)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("open bundle: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if err := extractFile(dir, f); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

func extractFile(dir string, f *zip.File) error {
	name := strings.TrimPrefix(filepath.ToSlash(f.Name), "/")
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("bundle entry escapes extract dir: %s", f.Name)
		}
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func readServerEntry(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	var m struct {
		ServerEntry string `json:"server_entry"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("parse manifest: %w", err)
	}
	return strings.TrimSpace(m.ServerEntry), nil
}

// allocatePort asks the OS for a free TCP port by binding port 0 and
// closing the listener. Two concurrent starts can race to the same port;
// the readiness probe is the authoritative check.
func allocatePort(bindHost string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(bindHost, "0"))
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

// waitReady polls the child's port until it accepts a connection, the
// child exits, or the probe budget runs out.
func waitReady(h *handle, port int) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	deadline := time.Now().Add(probeBudget)
	for time.Now().Before(deadline) {
		select {
		case <-h.done:
			return &SpawnError{ExitCode: h.exit}
		default:
		}
		conn, err := net.DialTimeout("tcp", addr, probeDial)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(probeBackoff)
	}
	return ErrStartupTimeout
}

// commandFor builds the exec command for a server entry. Script entries are
// run through their interpreter; anything else is executed directly.
func commandFor(entryPath string) *exec.Cmd {
	switch strings.ToLower(filepath.Ext(entryPath)) {
	case ".py":
		python := "python3"
		if _, err := exec.LookPath(python); err != nil {
			python = "python"
		}
		return exec.Command(python, entryPath)
	default:
		return exec.Command(entryPath)
	}
}

func (s *Supervisor) resolvePublicHost() string {
	host := s.publicHost
	if host == "" || host == "0.0.0.0" || host == "127.0.0.1" {
		if name, err := os.Hostname(); err == nil && name != "" {
			return name
		}
		return s.bindHost
	}
	return host
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
