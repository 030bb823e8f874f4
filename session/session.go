// Package session persists chat history to disk so a conversation can be
// resumed against a freshly spawned agent. Each chat is one JSON document
// keyed by its id; the agent subprocess itself keeps no state across runs, so
// the driver replays this history to reconstruct it.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/protocol"
)

// DocumentVersion is the current on-disk schema version.
const DocumentVersion = 1

// Document is the persisted form of one chat.
type Document struct {
	Version    int             `json:"version"`
	ID         string          `json:"id"`
	ProviderID string          `json:"providerId"`
	History    []protocol.Turn `json:"history"`
}

// UserTurns returns the user-role contents in order, which is exactly what a
// driver replays to rebuild agent-side state.
func (d *Document) UserTurns() []string {
	var turns []string
	for _, t := range d.History {
		if t.Role == "user" {
			turns = append(turns, t.Content)
		}
	}
	return turns
}

// Store keeps one JSON document per chat under a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create sessions directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Save writes doc to disk, overwriting any previous state for the same id.
func (s *Store) Save(doc *Document) error {
	if doc.ID == "" {
		return errors.New("cannot save a chat without an id")
	}
	doc.Version = DocumentVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "serialize chat %s", doc.ID)
	}
	return os.WriteFile(s.path(doc.ID), data, 0o644)
}

// Load reads the document for id.
func (s *Store) Load(id string) (*Document, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, errors.Wrapf(err, "read chat %s", id)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse chat %s", id)
	}
	return &doc, nil
}

// List returns the ids of all persisted chats, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list sessions directory")
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the document for id. Deleting a chat that does not exist is
// an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return errors.Wrapf(err, "delete chat %s", id)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
