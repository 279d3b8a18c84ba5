package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/foundry/internal/tools"
)

func workspaceCtx(t *testing.T) *tools.ExecContext {
	t.Helper()
	return tools.NewExecContext(t.TempDir())
}

func TestResolver(t *testing.T) {
	root := t.TempDir()
	r := Resolver{Root: root}

	t.Run("relative path", func(t *testing.T) {
		got, err := r.Resolve("sub/file.txt")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !strings.HasPrefix(got, root) {
			t.Errorf("resolved %q outside root", got)
		}
	})

	t.Run("escape rejected", func(t *testing.T) {
		if _, err := r.Resolve("../outside"); err == nil {
			t.Error("parent escape allowed")
		}
		if _, err := r.Resolve("a/../../outside"); err == nil {
			t.Error("nested escape allowed")
		}
	})

	t.Run("absolute outside rejected", func(t *testing.T) {
		if _, err := r.Resolve("/etc/passwd"); err == nil {
			t.Error("absolute path outside root allowed")
		}
	})

	t.Run("empty rejected", func(t *testing.T) {
		if _, err := r.Resolve("  "); err == nil {
			t.Error("empty path allowed")
		}
	})
}

func TestWriteThenRead(t *testing.T) {
	ec := workspaceCtx(t)
	write := NewWriteTool()
	read := NewReadTool()

	result, err := write.Execute(context.Background(), ec, map[string]any{
		"path":    "notes/hello.txt",
		"content": "hello files",
	})
	if err != nil || result.IsError {
		t.Fatalf("write: %v / %+v", err, result)
	}

	got, err := read.Execute(context.Background(), ec, map[string]any{"path": "notes/hello.txt"})
	if err != nil || got.IsError {
		t.Fatalf("read: %v / %+v", err, got)
	}
	if got.Content != "hello files" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestRead_OffsetLimit(t *testing.T) {
	ec := workspaceCtx(t)
	if err := os.WriteFile(filepath.Join(ec.WorkingDir, "data.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	read := NewReadTool()

	result, _ := read.Execute(context.Background(), ec, map[string]any{
		"path":   "data.txt",
		"offset": 3,
		"limit":  4,
	})
	if result.IsError {
		t.Fatalf("read failed: %s", result.Content)
	}
	if result.Content != "3456" {
		t.Errorf("content = %q, want 3456", result.Content)
	}
	if result.Meta("truncated") != true {
		t.Error("truncated flag missing")
	}
}

func TestRead_Missing(t *testing.T) {
	ec := workspaceCtx(t)
	read := NewReadTool()
	result, _ := read.Execute(context.Background(), ec, map[string]any{"path": "nope.txt"})
	if !result.IsError {
		t.Error("missing file read succeeded")
	}
}

func TestWrite_DryRun(t *testing.T) {
	ec := workspaceCtx(t)
	ec.DryRun = true
	write := NewWriteTool()

	result, _ := write.Execute(context.Background(), ec, map[string]any{
		"path":    "f.txt",
		"content": "x",
	})
	if result.IsError || !strings.Contains(result.Content, "dry-run") {
		t.Errorf("dry-run result = %+v", result)
	}
	if _, err := os.Stat(filepath.Join(ec.WorkingDir, "f.txt")); !os.IsNotExist(err) {
		t.Error("dry-run wrote the file")
	}
}

func TestListDir(t *testing.T) {
	ec := workspaceCtx(t)
	if err := os.MkdirAll(filepath.Join(ec.WorkingDir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ec.WorkingDir, "b.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ec.WorkingDir, "a.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	list := NewListTool()
	result, _ := list.Execute(context.Background(), ec, map[string]any{})
	if result.IsError {
		t.Fatalf("list failed: %s", result.Content)
	}
	lines := strings.Split(strings.TrimSpace(result.Content), "\n")
	want := []string{"a.txt", "b.txt", "subdir/"}
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], w)
		}
	}
}
