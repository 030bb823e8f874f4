package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/agentwire/agentwire/config"
	"github.com/agentwire/agentwire/errors"
)

// ReadFileTool reads a file's full contents.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the entire content of a file. Args: path (string)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := args["path"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'path' argument")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path %q is hidden", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read file %q", path)
	}
	return string(content), nil
}

// WriteFileTool replaces a file's contents.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Args: path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, pathOK := args["path"].(string)
	content, contentOK := args["content"].(string)
	if !pathOK || !contentOK {
		return "", errors.New("missing or invalid 'path' or 'content' arguments")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path %q is hidden", path)
	}

	readOnly, err := isPathRestricted(path, t.fsAccess.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path %q is read-only", path)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "write file %q", path)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}
