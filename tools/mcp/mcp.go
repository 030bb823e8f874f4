// Package mcp connects to external MCP tool servers over stdio and exposes
// their tools to the agent's registry.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/logging"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools map[string]*RemoteTool
}

// NewClient starts the MCP server subprocess, connects over stdio, and
// discovers the tools it provides.
func NewClient(name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "agentwire", Version: "v1.0.0"}, nil)
	ctx := context.Background()
	conn, err := sdkClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "connect to MCP server %q", name)
	}
	c := &Client{
		Name:  name,
		cmd:   cmd,
		conn:  conn,
		tools: make(map[string]*RemoteTool),
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "list tools from MCP server %q", name)
		}
		for _, t := range list.Tools {
			c.tools[t.Name] = &RemoteTool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      c,
			}
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logging.Info("mcp server connected", "server", name, "tools", len(c.tools))
	return c, nil
}

// Tools returns the discovered tools sorted by name.
func (c *Client) Tools() []*RemoteTool {
	out := make([]*RemoteTool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].toolName < out[j].toolName })
	return out
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// RemoteTool is a tool provided by an external MCP server. It satisfies the
// parent package's Tool interface.
type RemoteTool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

func (t *RemoteTool) Name() string        { return t.toolName }
func (t *RemoteTool) Description() string { return t.description }

// Execute forwards the call to the MCP server and concatenates the text
// content of the result.
func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "call tool %q on MCP server %q", t.toolName, t.serverName)
	}
	var out string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out += tc.Text
		}
	}
	return out, nil
}
