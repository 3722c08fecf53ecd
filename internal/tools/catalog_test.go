package tools

import (
	"encoding/json"
	"testing"
)

func TestCatalogIncludesCoreTools(t *testing.T) {
	names := map[string]bool{}
	for _, name := range Names() {
		names[name] = true
	}
	for _, want := range []string{
		"launch_app", "list_windows", "focus_window", "click", "type_text",
		"scroll", "screenshot", "get_bytes", "perceive", "reason",
		"manage_credentials", "type_password", "handle_sudo", "find_image",
		"wait_for_image", "run_terminal_cmd", "check_notification",
		"use_skill", "get_agent_history",
	} {
		if !names[want] {
			t.Errorf("catalog missing tool %q", want)
		}
	}
}

func TestCatalogSchemasAreObjects(t *testing.T) {
	for _, spec := range Catalog() {
		for which, raw := range map[string]json.RawMessage{
			"input":  spec.InputSchema,
			"output": spec.OutputSchema,
		} {
			var schema struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(raw, &schema); err != nil {
				t.Errorf("%s: %s schema is not valid JSON: %v", spec.Name, which, err)
				continue
			}
			if schema.Type != "object" {
				t.Errorf("%s: %s schema type = %q, want object", spec.Name, which, schema.Type)
			}
		}
		if spec.Description == "" {
			t.Errorf("%s: missing description", spec.Name)
		}
	}
}

func TestCatalogNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Names() {
		if seen[name] {
			t.Errorf("duplicate tool name %q", name)
		}
		seen[name] = true
	}
}

func TestByName(t *testing.T) {
	spec, ok := ByName("click")
	if !ok || spec.Name != "click" {
		t.Errorf("ByName(click) = %+v, %v", spec, ok)
	}
	if _, ok := ByName("no_such_tool"); ok {
		t.Error("unknown name should not resolve")
	}
}
