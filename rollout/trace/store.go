package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "20060102T150405Z"

// Store writes and reads trace records as individual JSON files under one
// directory. Keys embed the rollout id, a UTC timestamp, and a uniqueness
// suffix derived from the idempotency key, so concurrent writers never need
// coordination: two tasks can share a rollout id and a timestamp second yet
// still land in distinct files.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first
// write, not here, so a read-only consumer can point at a missing directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory this store reads and writes.
func (s *Store) Dir() string {
	return s.dir
}

// Write persists one record and returns the path it landed at.
func (s *Store) Write(rec *Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create traces dir: %w", err)
	}

	timestamp := time.Now().UTC().Format(timestampLayout)
	name := fmt.Sprintf("rollout_%s_%s_%s.json",
		sanitizeKeyPart(rec.RolloutID), timestamp, uniqueSuffix(rec.TaskInput.IdempotencyKey))
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trace record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write trace record: %w", err)
	}
	return path, nil
}

// List returns all trace record paths in lexical order. Legacy files without
// a uniqueness suffix match too. A missing directory is an empty store.
func (s *Store) List() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "rollout_*.json"))
	if err != nil {
		return nil, fmt.Errorf("list traces dir: %w", err)
	}
	return paths, nil
}

// Load reads and decodes one record.
func (s *Store) Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode trace record %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// uniqueSuffix derives the filename uniqueness component from the task's
// idempotency key, falling back to a fresh random token when absent.
func uniqueSuffix(idempotencyKey string) string {
	key := sanitizeKeyPart(idempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	if len(key) > 8 {
		key = key[:8]
	}
	return key
}

var keyPartSanitizer = strings.NewReplacer("/", "-", "\\", "-", " ", "-")

func sanitizeKeyPart(part string) string {
	return keyPartSanitizer.Replace(part)
}
