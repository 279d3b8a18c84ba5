package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/foundry/internal/tools"
)

// DefaultMaxReadBytes caps a single read.
const DefaultMaxReadBytes = 200_000

// ReadTool reads a file within the workspace.
type ReadTool struct{}

// NewReadTool creates the read_file tool.
func NewReadTool() *ReadTool { return &ReadTool{} }

func (t *ReadTool) Descriptor() tools.Descriptor {
	zero := float64(0)
	return tools.Descriptor{
		Name:        "read_file",
		Description: "Read a file from the workspace with optional offset and byte limit.",
		Category:    tools.CategoryFile,
		Params: []tools.Param{
			{
				Name:        "path",
				Type:        tools.TypeString,
				Description: "Path to the file (relative to workspace).",
				Required:    true,
			},
			{
				Name:        "offset",
				Type:        tools.TypeInteger,
				Description: "Byte offset to start reading from.",
				Default:     0,
				Minimum:     &zero,
			},
			{
				Name:        "limit",
				Type:        tools.TypeInteger,
				Description: "Maximum bytes to read.",
				Minimum:     &zero,
			},
		},
	}
}

func (t *ReadTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	resolver := Resolver{Root: ec.WorkingDir}
	path, err := resolver.Resolve(stringArg(args, "path"))
	if err != nil {
		return tools.Errorf("%v", err), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tools.Errorf("read %s: %v", path, err), nil
	}

	offset := intArg(args, "offset", 0)
	if offset > len(data) {
		offset = len(data)
	}
	data = data[offset:]

	limit := intArg(args, "limit", DefaultMaxReadBytes)
	if limit <= 0 || limit > DefaultMaxReadBytes {
		limit = DefaultMaxReadBytes
	}
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}

	return tools.Ok(string(data)).
		WithMeta("path", path).
		WithMeta("truncated", truncated), nil
}

// WriteTool writes a file within the workspace.
type WriteTool struct{}

// NewWriteTool creates the write_file tool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

func (t *WriteTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "write_file",
		Description: "Write content to a file in the workspace, creating parent directories.",
		Category:    tools.CategoryFile,
		Params: []tools.Param{
			{
				Name:        "path",
				Type:        tools.TypeString,
				Description: "Path to the file (relative to workspace).",
				Required:    true,
			},
			{
				Name:        "content",
				Type:        tools.TypeString,
				Description: "File content to write.",
				Required:    true,
			},
		},
	}
}

func (t *WriteTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	resolver := Resolver{Root: ec.WorkingDir}
	path, err := resolver.Resolve(stringArg(args, "path"))
	if err != nil {
		return tools.Errorf("%v", err), nil
	}
	content := stringArg(args, "content")

	if ec.DryRun {
		return tools.Ok(fmt.Sprintf("[dry-run] would write %d bytes to %s", len(content), path)), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tools.Errorf("create directories: %v", err), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return tools.Errorf("write %s: %v", path, err), nil
	}

	return tools.Ok(fmt.Sprintf("Wrote %d bytes to %s", len(content), path)).
		WithMeta("path", path).
		WithMeta("bytes", len(content)), nil
}

// ListTool lists a directory within the workspace.
type ListTool struct{}

// NewListTool creates the list_dir tool.
func NewListTool() *ListTool { return &ListTool{} }

func (t *ListTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "list_dir",
		Description: "List the entries of a workspace directory.",
		Category:    tools.CategoryFile,
		Params: []tools.Param{
			{
				Name:        "path",
				Type:        tools.TypeString,
				Description: "Directory path (relative to workspace, default: workspace root).",
				Default:     ".",
			},
		},
	}
}

func (t *ListTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	target := stringArg(args, "path")
	if target == "" {
		target = "."
	}
	resolver := Resolver{Root: ec.WorkingDir}
	path, err := resolver.Resolve(target)
	if err != nil {
		return tools.Errorf("%v", err), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return tools.Errorf("list %s: %v", path, err), nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return tools.Ok(strings.Join(names, "\n")).
		WithMeta("path", path).
		WithMeta("count", len(names)), nil
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
