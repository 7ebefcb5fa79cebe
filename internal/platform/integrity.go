package platform

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// IntegrityManifest maps every shipped file of a bundle version to the
// SHA-256 of its uncompressed content. Clients hash their local extract
// with the same ignore set and compare byte for byte.
type IntegrityManifest struct {
	GameID  string            `json:"game_id"`
	Version string            `json:"version"`
	Files   map[string]string `json:"files"`
}

var ignoredTopDirs = map[string]bool{
	"__MACOSX": true,
	".git":     true,
	".idea":    true,
	".vscode":  true,
}

var ignoredBasenames = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

// ignoreIntegrityPath filters editor droppings and build caches out of the
// hash manifest. The set is part of the wire protocol: server and client
// must agree on it exactly.
func ignoreIntegrityPath(name string) bool {
	normalized := strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if normalized == "" {
		return true
	}
	parts := []string{}
	for _, p := range strings.Split(normalized, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return true
	}
	if ignoredTopDirs[parts[0]] {
		return true
	}
	for _, p := range parts {
		if p == "__pycache__" {
			return true
		}
	}
	base := parts[len(parts)-1]
	if ignoredBasenames[base] {
		return true
	}
	if strings.HasSuffix(base, ".pyc") || strings.HasSuffix(base, ".pyo") {
		return true
	}
	return false
}

// GameIntegrity hashes the stored zip for the resolved version so clients
// can verify a local install before launching it.
func (s *Service) GameIntegrity(gameID, version string) (*IntegrityManifest, error) {
	d := s.store.Snapshot()
	game, ok := d.Games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if !game.Active && d.ActiveRoomCount(gameID) == 0 {
		return nil, ErrGameInactive
	}
	target := version
	if target == "" {
		target = game.LatestVersion
	}
	rec := game.FindVersion(target)
	if rec == nil {
		return nil, ErrVersionNotFound
	}

	zr, err := zip.OpenReader(rec.Path)
	if err != nil {
		return nil, ErrArtifactMissing
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimLeft(strings.ReplaceAll(f.Name, "\\", "/"), "/")
		if name == "" || ignoreIntegrityPath(name) {
			continue
		}
		digest, err := hashZipEntry(f)
		if err != nil {
			return nil, badRequest("stored bundle is corrupt: %s", f.Name)
		}
		files[name] = digest
	}
	return &IntegrityManifest{GameID: gameID, Version: target, Files: files}, nil
}

func hashZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashLocalFiles is the client half of the integrity round trip: hash a
// set of relative path -> content pairs with the same ignore rules.
func HashLocalFiles(files map[string][]byte) map[string]string {
	out := make(map[string]string)
	for name, content := range files {
		normalized := strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
		if normalized == "" || ignoreIntegrityPath(normalized) {
			continue
		}
		sum := sha256.Sum256(content)
		out[normalized] = hex.EncodeToString(sum[:])
	}
	return out
}
