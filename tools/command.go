package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/agentwire/agentwire/errors"
)

// ExecuteCommandTool runs an allowlisted OS command.
type ExecuteCommandTool struct {
	allowedCommands []string
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }
func (t *ExecuteCommandTool) Description() string {
	if len(t.allowedCommands) == 0 {
		return "Executes a shell command. No commands are currently allowed. Args: command (string)."
	}
	var b strings.Builder
	b.WriteString("Executes a shell command. Args: command (string).\nAllowed command patterns:\n")
	for _, cmd := range t.allowedCommands {
		fmt.Fprintf(&b, "- %s\n", cmd)
	}
	return b.String()
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command, ok := args["command"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'command' argument")
	}

	if !isCommandAllowed(command, t.allowedCommands) {
		return "", errors.New("command %q is not in the list of allowed commands", command)
	}

	parts := strings.Fields(command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "command failed, output:\n%s", string(output))
	}
	return string(output), nil
}
