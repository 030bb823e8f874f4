// Package registry maps provider ids to agent spawn specifications. The
// registry is one JSON document on disk; resolving a provider produces a
// transport.SpawnSpec with a sanitized child environment.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/transport"
)

// Provider is one registered agent implementation.
type Provider struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Command     string   `json:"command"`
	Args        []string `json:"args,omitempty"`
	Cwd         string   `json:"cwd,omitempty"`
	// Env lists extra variables for the child. An empty value means "pass
	// through the parent's value of this variable", which is how API keys
	// reach provider-backed agents without being stored in the registry.
	Env map[string]string `json:"env,omitempty"`
}

type document struct {
	Version   int                 `json:"version"`
	Providers map[string]Provider `json:"providers"`
}

// Registry is the collection of known providers, persisted at one path.
type Registry struct {
	path      string
	providers map[string]Provider
}

// Open loads the registry at path, or returns an empty registry if the file
// does not exist yet.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, providers: map[string]Provider{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read provider registry %s", path)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse provider registry %s", path)
	}
	if doc.Providers != nil {
		r.providers = doc.Providers
	}
	return r, nil
}

// Register adds or replaces a provider and persists the registry.
func (r *Registry) Register(p Provider) error {
	if p.ID == "" {
		return errors.New("provider id is required")
	}
	if p.Command == "" {
		return errors.New("provider %q has no command", p.ID)
	}
	r.providers[p.ID] = p
	return r.save()
}

// Remove deletes a provider and persists the registry.
func (r *Registry) Remove(id string) error {
	if _, ok := r.providers[id]; !ok {
		return errors.New("unknown provider %q", id)
	}
	delete(r.providers, id)
	return r.save()
}

// Get returns one provider record.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return Provider{}, errors.New("unknown provider %q", id)
	}
	return p, nil
}

// List returns all providers sorted by id.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve turns a provider id into a ready-to-spawn spec, combining the
// sanitized parent environment with the provider's declared variables.
func (r *Registry) Resolve(id string) (transport.SpawnSpec, error) {
	p, err := r.Get(id)
	if err != nil {
		return transport.SpawnSpec{}, err
	}
	return transport.SpawnSpec{
		Command: p.Command,
		Args:    p.Args,
		Cwd:     p.Cwd,
		Env:     ChildEnv(os.Environ(), p.Env),
	}, nil
}

func (r *Registry) save() error {
	doc := document{Version: 1, Providers: r.providers}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "serialize provider registry")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return errors.Wrapf(err, "create registry directory")
	}
	return os.WriteFile(r.path, data, 0o644)
}
