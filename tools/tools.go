// Package tools provides the actions an agent can perform on behalf of a
// tool/call message or an LLM tool-use reply: builtin file and command tools
// plus tools discovered from external MCP servers.
package tools

import (
	"context"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentwire/agentwire/config"
	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/tools/mcp"
)

// Tool is any action the agent can execute.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the tools available to one agent.
type Registry struct {
	tools      map[string]Tool
	mcpClients []*mcp.Client
}

// NewRegistry registers the builtin tools and connects the MCP servers named
// in cfg. MCP failures are logged and skipped rather than failing the agent:
// a missing tool server should not take down the protocol loop.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{tools: make(map[string]Tool)}

	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&ExecuteCommandTool{allowedCommands: cfg.AllowedCommands})

	for _, srv := range cfg.MCPServers {
		client, err := mcp.NewClient(srv.Name, srv.Command, srv.Args)
		if err != nil {
			logging.Warn("mcp server unavailable", "server", srv.Name, "error", err)
			continue
		}
		r.mcpClients = append(r.mcpClients, client)
		for _, t := range client.Tools() {
			r.Register(t)
		}
	}

	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns every registered tool.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", errors.New("tool %q is not registered", name)
	}
	return t.Execute(ctx, args)
}

// Close terminates any MCP server subprocesses.
func (r *Registry) Close() {
	for _, c := range r.mcpClients {
		if err := c.Stop(); err != nil {
			logging.Warn("stopping mcp server", "server", c.Name, "error", err)
		}
	}
}

// isPathRestricted checks whether path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob pattern %q", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks a command against the allowlist, which may contain
// regular expressions. An invalid pattern falls back to exact comparison.
func isCommandAllowed(command string, allowed []string) bool {
	if len(strings.Fields(command)) == 0 {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
