package commands

import (
	"context"
	"testing"
)

func noopHandler(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
	return Ok("ok"), nil
}

func TestRegistry_Register(t *testing.T) {
	t.Run("nil command", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(nil); err == nil {
			t.Error("expected error for nil command")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(&Command{Name: "", Handler: noopHandler}); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("nil handler", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(&Command{Name: "x"}); err == nil {
			t.Error("expected error for nil handler")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(&Command{Name: "x", Handler: noopHandler}); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := r.Register(&Command{Name: "x", Handler: noopHandler}); err == nil {
			t.Error("expected error for duplicate name")
		}
	})

	t.Run("name conflicts with alias", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(&Command{Name: "first", Aliases: []string{"f"}, Handler: noopHandler}); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := r.Register(&Command{Name: "f", Handler: noopHandler}); err == nil {
			t.Error("expected error when name collides with alias")
		}
	})

	t.Run("colliding alias is skipped not fatal", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(&Command{Name: "first", Handler: noopHandler}); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := r.Register(&Command{Name: "second", Aliases: []string{"first", "s"}, Handler: noopHandler}); err != nil {
			t.Errorf("registration failed on colliding alias: %v", err)
		}
		// The colliding alias resolves to the original command.
		cmd, ok := r.Resolve("first")
		if !ok || cmd.Name != "first" {
			t.Error("colliding alias shadowed the original command")
		}
		// The clean alias still works.
		cmd, ok = r.Resolve("s")
		if !ok || cmd.Name != "second" {
			t.Error("clean alias not registered")
		}
	})
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&Command{Name: "session", Aliases: []string{"sess"}, Handler: noopHandler}); err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("canonical", func(t *testing.T) {
		if _, ok := r.Resolve("session"); !ok {
			t.Error("canonical name not resolved")
		}
	})
	t.Run("alias", func(t *testing.T) {
		cmd, ok := r.Resolve("sess")
		if !ok || cmd.Name != "session" {
			t.Error("alias not resolved")
		}
	})
	t.Run("case insensitive", func(t *testing.T) {
		if _, ok := r.Resolve("SESSION"); !ok {
			t.Error("uppercase lookup failed")
		}
	})
	t.Run("unknown", func(t *testing.T) {
		if _, ok := r.Resolve("nope"); ok {
			t.Error("unknown name resolved")
		}
	})
}

func TestRegistry_ListAndCategories(t *testing.T) {
	r := NewRegistry(nil)
	for _, spec := range []struct {
		name string
		cat  Category
	}{
		{"zeta", CategoryGeneral},
		{"alpha", CategoryGeneral},
		{"ctl", CategoryControl},
	} {
		if err := r.Register(&Command{Name: spec.name, Category: spec.cat, Handler: noopHandler}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	all := r.ListCommands("")
	if len(all) != 3 || all[0].Name != "alpha" {
		t.Errorf("ListCommands not sorted: %v", names(all))
	}

	general := r.ListCommands(CategoryGeneral)
	if len(general) != 2 {
		t.Errorf("ListCommands(general) = %v", names(general))
	}

	cats := r.GetCategories()
	if len(cats[CategoryControl]) != 1 || cats[CategoryControl][0].Name != "ctl" {
		t.Errorf("GetCategories wrong: %v", cats)
	}
}

func names(cmds []*Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name
	}
	return out
}
