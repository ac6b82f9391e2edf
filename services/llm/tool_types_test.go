// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"encoding/json"
	"testing"
)

func TestToolCallResponse_ArgumentsMap(t *testing.T) {
	tests := []struct {
		name    string
		args    json.RawMessage
		wantKey string
		wantVal any
		wantErr bool
	}{
		{name: "object", args: json.RawMessage(`{"query":"rag","lesson_number":3}`), wantKey: "query", wantVal: "rag"},
		{name: "number decodes as float64", args: json.RawMessage(`{"lesson_number":3}`), wantKey: "lesson_number", wantVal: float64(3)},
		{name: "empty", args: nil},
		{name: "not an object", args: json.RawMessage(`"just a string"`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := ToolCallResponse{Arguments: tt.args}
			got, err := tc.ArgumentsMap()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ArgumentsMap: %v", err)
			}
			if got == nil {
				t.Fatal("map is nil")
			}
			if tt.wantKey != "" && got[tt.wantKey] != tt.wantVal {
				t.Errorf("%s = %v, want %v", tt.wantKey, got[tt.wantKey], tt.wantVal)
			}
		})
	}
}

func TestToolDef_MarshalsToFunctionSchema(t *testing.T) {
	def := ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        "search_course_content",
			Description: "Search course materials",
			Parameters: ToolParameters{
				Type: "object",
				Properties: map[string]ToolParamDef{
					"query":         {Type: "string", Description: "What to search for"},
					"lesson_number": {Type: "integer"},
				},
				Required: []string{"query"},
			},
		},
	}

	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fn, ok := decoded["function"].(map[string]any)
	if !ok {
		t.Fatalf("function field missing: %s", data)
	}
	if fn["name"] != "search_course_content" {
		t.Errorf("name = %v", fn["name"])
	}
	params := fn["parameters"].(map[string]any)
	if params["type"] != "object" {
		t.Errorf("parameters.type = %v", params["type"])
	}
}

func TestChatWithToolsResult_RequestedTools(t *testing.T) {
	r := &ChatWithToolsResult{Content: "text only", StopReason: "end"}
	if r.RequestedTools() {
		t.Error("RequestedTools = true for text-only result")
	}
	r.ToolCalls = append(r.ToolCalls, ToolCallResponse{ID: "a", Name: "t"})
	if !r.RequestedTools() {
		t.Error("RequestedTools = false with a tool call present")
	}
}
