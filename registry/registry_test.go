package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterResolveRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "providers.json")

	r, err := Open(path)
	require.NoError(t, err)
	require.Empty(t, r.List())

	require.NoError(t, r.Register(Provider{
		ID:      "mock",
		Command: "agentwire-agent",
		Args:    []string{"--responder", "mock"},
	}))

	// Reopen from disk to prove persistence.
	r2, err := Open(path)
	require.NoError(t, err)
	p, err := r2.Get("mock")
	require.NoError(t, err)
	assert.Equal(t, "agentwire-agent", p.Command)

	spec, err := r2.Resolve("mock")
	require.NoError(t, err)
	assert.Equal(t, "agentwire-agent", spec.Command)
	assert.Equal(t, []string{"--responder", "mock"}, spec.Args)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	r, err := Open(filepath.Join(t.TempDir(), "providers.json"))
	require.NoError(t, err)

	assert.Error(t, r.Register(Provider{Command: "x"}))
	assert.Error(t, r.Register(Provider{ID: "x"}))
}

func TestRemove(t *testing.T) {
	t.Parallel()
	r, err := Open(filepath.Join(t.TempDir(), "providers.json"))
	require.NoError(t, err)

	require.NoError(t, r.Register(Provider{ID: "a", Command: "a"}))
	require.NoError(t, r.Remove("a"))
	assert.Error(t, r.Remove("a"))
	_, err = r.Get("a")
	assert.Error(t, err)
}

func TestResolveUnknown(t *testing.T) {
	t.Parallel()
	r, err := Open(filepath.Join(t.TempDir(), "providers.json"))
	require.NoError(t, err)
	_, err = r.Resolve("nope")
	assert.Error(t, err)
}

func TestSanitizeEnv(t *testing.T) {
	t.Parallel()

	environ := []string{
		"PATH=/usr/bin",
		"HOME=/home/u",
		"SECRET_TOKEN=hunter2",
		"AGENTWIRE_DEBUG=1",
		"MALFORMED",
		"=novalue",
	}
	got := SanitizeEnv(environ)
	assert.Equal(t, []string{"AGENTWIRE_DEBUG=1", "HOME=/home/u", "PATH=/usr/bin"}, got)
}

func TestChildEnvDeclaredAndPassthrough(t *testing.T) {
	t.Parallel()

	environ := []string{
		"PATH=/usr/bin",
		"ANTHROPIC_API_KEY=sk-parent",
		"SECRET_TOKEN=hunter2",
	}
	declared := map[string]string{
		"ANTHROPIC_API_KEY": "",          // pass through parent value
		"AGENT_MODE":        "streaming", // explicit value
	}
	got := ChildEnv(environ, declared)
	assert.Contains(t, got, "PATH=/usr/bin")
	assert.Contains(t, got, "ANTHROPIC_API_KEY=sk-parent")
	assert.Contains(t, got, "AGENT_MODE=streaming")
	assert.NotContains(t, got, "SECRET_TOKEN=hunter2")
}
