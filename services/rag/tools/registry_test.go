// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/LecternAI/Lectern/services/llm"
)

// stubTool is a minimal Tool for registry tests.
type stubTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error)
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Definition() llm.ToolDef {
	return llm.ToolDef{
		Type:     "function",
		Function: llm.ToolFunction{Name: s.name, Parameters: llm.ToolParameters{Type: "object"}},
	}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error) {
	if s.execute != nil {
		return s.execute(ctx, args, rec)
	}
	return "ok", nil
}

func TestRegistryRegisterAndDefinitions(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"beta_tool", "alpha_tool"} {
		if err := reg.Register(&stubTool{name: name}); err != nil {
			t.Fatalf("Register(%q) failed: %v", name, err)
		}
	}

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	// Registration order, not lexical order.
	if defs[0].Function.Name != "beta_tool" || defs[1].Function.Name != "alpha_tool" {
		t.Errorf("definitions out of registration order: %q, %q",
			defs[0].Function.Name, defs[1].Function.Name)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubTool{name: "dup"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(&stubTool{name: "dup"}); err == nil {
		t.Fatal("expected error registering duplicate tool name")
	}
}

func TestExecSessionUnknownTool(t *testing.T) {
	sess := NewRegistry().Session()

	_, err := sess.Execute(context.Background(), "missing_tool", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestExecSessionIsolatesSources(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&stubTool{
		name: "citing_tool",
		execute: func(ctx context.Context, args map[string]any, rec *SourceRecorder) (string, error) {
			rec.Add(SourceRecord{Text: args["label"].(string)})
			return "done", nil
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	first := reg.Session()
	second := reg.Session()
	if _, err := first.Execute(context.Background(), "citing_tool", map[string]any{"label": "a"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := second.Execute(context.Background(), "citing_tool", map[string]any{"label": "b"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := first.Sources(); len(got) != 1 || got[0].Text != "a" {
		t.Errorf("first session sources polluted: %v", got)
	}
	if got := second.Sources(); len(got) != 1 || got[0].Text != "b" {
		t.Errorf("second session sources polluted: %v", got)
	}

	first.Reset()
	if len(first.Sources()) != 0 {
		t.Error("Reset did not clear sources")
	}
	if len(second.Sources()) != 1 {
		t.Error("Reset of one session affected another")
	}
}
