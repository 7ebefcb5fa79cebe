package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store owns the platform document and serializes every mutation behind a
// single mutex. Readers get deep copies via Snapshot; writers run inside
// Update and their changes are flushed to disk before Update returns.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *Document
	log  *zap.Logger
}

// Open loads the document at path, initializing the empty schema when the
// file does not exist yet.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = NewDocument()
		if err := s.flush(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		doc := NewDocument()
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		s.doc = doc
	}
	return s, nil
}

// Snapshot returns a deep copy of the whole document. Callers may inspect
// and transform it freely without racing subsequent writes.
func (s *Store) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.doc)
}

// Update runs fn against the live document under the store lock and flushes
// to disk before returning. fn's error is passed through; a failing fn must
// not have mutated the document.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fnErr := fn(s.doc)
	if err := s.flush(); err != nil {
		s.log.Error("store flush failed", zap.Error(err))
		if fnErr == nil {
			return err
		}
	}
	return fnErr
}

// Reset replaces the document with the empty schema.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = NewDocument()
	return s.flush()
}

// flush writes the document durably using write-temp-then-rename so a
// partial write never corrupts the previous snapshot. Caller holds s.mu.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".data-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// clone deep-copies a document through its JSON form. The document is plain
// data, so the round trip is lossless.
func clone(doc *Document) *Document {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("store: document not serializable: %v", err))
	}
	out := NewDocument()
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("store: document not round-trippable: %v", err))
	}
	return out
}
