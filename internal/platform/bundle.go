package platform

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Manifest is the declared shape of a bundle: exactly these four keys, no
// more, no less. Changing this set is a wire-protocol change shared with
// every client.
type Manifest struct {
	Entry       string `json:"entry"`
	ServerEntry string `json:"server_entry"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

var manifestKeys = map[string]bool{
	"entry":        true,
	"server_entry": true,
	"min_players":  true,
	"max_players":  true,
}

// validateBundle checks an uploaded base64 zip and returns the decoded
// bytes plus the parsed manifest with normalized entry paths. The checks
// run in a fixed order so clients get deterministic messages.
func validateBundle(fileData string) ([]byte, *Manifest, error) {
	raw, err := base64.StdEncoding.DecodeString(fileData)
	if err != nil {
		return nil, nil, badRequest("invalid file data (base64 decode failed)")
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, nil, badRequest("uploaded file is not a valid zip")
	}

	var manifestFile *zip.File
	zipFiles := make(map[string]bool)
	for _, f := range zr.File {
		if f.Name == "manifest.json" {
			manifestFile = f
		}
		if !strings.HasSuffix(f.Name, "/") {
			zipFiles[normalizeEntryPath(f.Name)] = true
		}
	}
	if manifestFile == nil {
		return nil, nil, badRequest("manifest.json is missing")
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, nil, badRequest("manifest.json could not be read")
	}
	defer rc.Close()
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(rc).Decode(&fields); err != nil {
		return nil, nil, badRequest("manifest.json is not a JSON object")
	}

	var missing, extra []string
	for key := range manifestKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	for key := range fields {
		if !manifestKeys[key] {
			extra = append(extra, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, badRequest("manifest is missing fields: %s", strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, nil, badRequest("manifest has unexpected fields: %s", strings.Join(extra, ", "))
	}

	m := &Manifest{}
	if m.Entry, err = manifestPath(fields["entry"], "entry", zipFiles); err != nil {
		return nil, nil, err
	}
	if m.ServerEntry, err = manifestPath(fields["server_entry"], "server_entry", zipFiles); err != nil {
		return nil, nil, err
	}
	if m.MinPlayers, err = manifestInt(fields["min_players"]); err != nil {
		return nil, nil, badRequest("min_players/max_players must be integers")
	}
	if m.MaxPlayers, err = manifestInt(fields["max_players"]); err != nil {
		return nil, nil, badRequest("min_players/max_players must be integers")
	}
	if m.MinPlayers <= 0 || m.MaxPlayers <= 0 {
		return nil, nil, badRequest("player counts must be greater than 0")
	}
	if m.MinPlayers > m.MaxPlayers {
		return nil, nil, badRequest("min_players cannot exceed max_players")
	}
	return raw, m, nil
}

// manifestPath validates one entry field: a non-empty string that, once
// normalized, stays inside the zip and names a real file.
func manifestPath(raw json.RawMessage, field string, zipFiles map[string]bool) (string, error) {
	var val string
	if err := json.Unmarshal(raw, &val); err != nil || strings.TrimSpace(val) == "" {
		return "", badRequest("%s must be a non-empty string", field)
	}
	p := normalizeEntryPath(val)
	if p == "" {
		return "", badRequest("%s must be a non-empty string", field)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", badRequest("%s must not contain ..", field)
		}
	}
	if !zipFiles[p] {
		return "", badRequest("%s file not found in bundle: %s", field, p)
	}
	return p, nil
}

// manifestInt accepts a JSON number or a numeric string
func manifestInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(str))
}

// normalizeEntryPath strips leading ./, collapses backslashes to forward
// slashes and removes any leading slash.
func normalizeEntryPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives the immutable game id from its display name
func slugify(name string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "game"
	}
	return slug
}
