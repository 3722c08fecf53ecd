// Package tools is the static schema catalog for every operation the
// agent can invoke. The transport layer consults it to advertise tools
// and validate parameters; the executor dispatches by name alone and
// never reads the catalog.
package tools

import "encoding/json"

// Spec describes one tool: its name, what it does, and the JSON schemas
// for its input parameters and result payload.
type Spec struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema"`
}

// Catalog returns the full tool catalog in a stable order.
func Catalog() []Spec {
	return []Spec{
		{
			Name: "launch_app",
			Description: "Launch an application by name, command, or path. Returns once the " +
				"process is spawned; use list_windows and focus_window to verify and raise it.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "target": {"type": "string", "description": "Application name, command, or full path to executable."}
  },
  "required": ["target"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Status message confirming launch."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "list_windows",
			Description: "List the titles of all currently open windows. Use before " +
				"focus_window to find an exact title.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "windows": {"type": "array", "items": {"type": "string"}, "description": "Titles of all open windows."}
  },
  "required": ["windows"]
}`),
		},
		{
			Name: "focus_window",
			Description: "Bring a window to the foreground by case-insensitive partial title " +
				"match. Always focus before clicking or typing.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "Full or partial window title to match (case-insensitive)."}
  },
  "required": ["title"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Which window was focused, or why none was."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "click",
			Description: "Perform a mouse click at the given screen coordinates, or at the " +
				"current pointer position when no coordinates are supplied. Origin (0,0) is the " +
				"top-left corner of the screen.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "x": {"type": "integer", "description": "X coordinate in pixels from the left edge."},
    "y": {"type": "integer", "description": "Y coordinate in pixels from the top edge."},
    "button": {"type": "string", "enum": ["left", "right", "middle"], "description": "Mouse button (default: left)."}
  },
  "required": [],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Confirmation message."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "type_text",
			Description: "Type text into the focused window, optionally pressing Enter " +
				"afterwards. Text is safety-checked before any keystroke is injected.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "The text to type."},
    "enter": {"type": "boolean", "description": "Press Enter after typing (default: false)."}
  },
  "required": ["text"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Confirmation message."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "scroll",
			Description: "Scroll vertically or horizontally by the given amount. Positive " +
				"amounts scroll up / right.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "amount": {"type": "integer", "description": "Scroll amount; sign selects the direction along the axis."},
    "direction": {"type": "string", "enum": ["vertical", "horizontal"], "description": "Scroll axis (default: vertical)."}
  },
  "required": ["amount"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Confirmation message."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "screenshot",
			Description: "Capture a screenshot of the current screen. Returns the saved file " +
				"path, a capture timestamp, and the image as base64.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path of the saved capture."},
    "captured_at": {"type": "string", "description": "RFC 3339 capture timestamp."},
    "base64_data": {"type": "string", "description": "Image bytes, base64-encoded."}
  },
  "required": []
}`),
		},
		{
			Name: "get_bytes",
			Description: "Read a file from disk and return its contents as base64. Files " +
				"larger than the configured limit (5 MiB by default) are rejected rather than " +
				"partially read.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Absolute or relative file path."}
  },
  "required": ["path"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Resolved absolute path."},
    "size": {"type": "integer", "description": "File size in bytes."},
    "base64_data": {"type": "string", "description": "File contents, base64-encoded."}
  },
  "required": ["path", "size", "base64_data"]
}`),
		},
		{
			Name: "perceive",
			Description: "Capture the screen and describe it with the vision model: visible " +
				"UI elements, their approximate locations, and the overall context. Use before " +
				"deciding what to click or type, and again afterwards to verify.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "instruction": {"type": "string", "description": "Optional instruction to focus the analysis."}
  },
  "required": [],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "analysis": {"type": "string", "description": "Description of UI elements, locations, and context."}
  },
  "required": ["analysis"]
}`),
		},
		{
			Name: "reason",
			Description: "Plan the single next action toward a goal given a perceive analysis. " +
				"This tool only plans; execute the plan with click, type_text, and friends, then " +
				"perceive again. Iterate: perceive, reason, act.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "analysis": {"type": "string", "description": "The UI analysis from the perceive tool."},
    "goal": {"type": "string", "description": "The ultimate objective."}
  },
  "required": ["analysis", "goal"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "plan": {"type": "string", "description": "The planned next step."}
  },
  "required": ["plan"]
}`),
		},
		{
			Name: "manage_credentials",
			Description: "Store a credential or check that one exists. Retrieval is " +
				"deliberately not exposed; secrets are typed with type_password instead.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "action": {"type": "string", "enum": ["set", "check"], "description": "Action to perform."},
    "id": {"type": "string", "description": "Identifier for the credential (e.g. \"sudo_pass\")."},
    "value": {"type": "string", "description": "The secret value (required for \"set\")."}
  },
  "required": ["action", "id"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Status message."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "type_password",
			Description: "Type a stored credential into the active field. The secret never " +
				"appears in results or the action history.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string", "description": "Identifier of the stored credential."},
    "enter": {"type": "boolean", "description": "Press Enter after typing (default: false)."}
  },
  "required": ["id"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Confirmation without the secret."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "handle_sudo",
			Description: "Answer a privilege-escalation prompt by typing the stored " +
				"\"sudo_pass\" credential followed by Enter.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "additionalProperties": false}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "description": "Status message."}
  },
  "required": ["message"]
}`),
		},
		{
			Name: "find_image",
			Description: "Find a UI element on screen by image-template correlation. Faster " +
				"and more precise than perceive when a reference image exists.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "template_path": {"type": "string", "description": "Path to the template image file."},
    "confidence": {"type": "number", "description": "Match threshold from 0.0 to 1.0 (default: 0.8)."}
  },
  "required": ["template_path"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "matches": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "x": {"type": "integer"},
          "y": {"type": "integer"},
          "w": {"type": "integer"},
          "h": {"type": "integer"},
          "center_x": {"type": "integer"},
          "center_y": {"type": "integer"},
          "confidence": {"type": "number"}
        }
      },
      "description": "Matches sorted by descending confidence."
    }
  },
  "required": ["matches"]
}`),
		},
		{
			Name: "wait_for_image",
			Description: "Poll the screen until a template image appears or the timeout " +
				"elapses. A timeout is a normal unsuccessful result, not an error.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "template_path": {"type": "string", "description": "Path to the template image file."},
    "timeout": {"type": "integer", "description": "Maximum seconds to wait (default: 10)."},
    "confidence": {"type": "number", "description": "Match threshold from 0.0 to 1.0 (default: 0.8)."}
  },
  "required": ["template_path"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "success": {"type": "boolean"},
    "match": {"type": "object", "description": "The best match found, when any."}
  },
  "required": ["success"]
}`),
		},
		{
			Name: "run_terminal_cmd",
			Description: "Run a shell command and return its output after it completes. " +
				"Suited to non-interactive CLI work: status checks, file information, process " +
				"queries.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "command": {"type": "string", "description": "The shell command to run."}
  },
  "required": ["command"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "stdout": {"type": "string"},
    "stderr": {"type": "string"},
    "returncode": {"type": "integer", "description": "Exit code; 0 means success."}
  },
  "required": ["returncode"]
}`),
		},
		{
			Name: "check_notification",
			Description: "Listen for a desktop notification for up to the given number of " +
				"seconds, optionally filtered by a keyword. Absence of a notification is " +
				"a normal result.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "timeout": {"type": "integer", "description": "Seconds to listen for notifications (default: 5)."},
    "keyword": {"type": "string", "description": "Only report notifications whose title or body contains this text (case-insensitive)."}
  },
  "required": [],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "found": {"type": "boolean"},
    "title": {"type": "string"},
    "body": {"type": "string"}
  },
  "required": ["found"]
}`),
		},
		{
			Name: "use_skill",
			Description: "Execute a registered high-level skill, a multi-step application " +
				"macro such as signal:send or whatsapp:send.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "skill": {"type": "string", "description": "Name of the skill to execute."},
    "params": {"type": "object", "description": "Parameters for the skill."}
  },
  "required": ["skill", "params"],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"}
  },
  "required": ["success", "message"]
}`),
		},
		{
			Name: "get_agent_history",
			Description: "Retrieve the most recent actions the agent performed, newest " +
				"first. The in-flight call itself is excluded.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "limit": {"type": "integer", "description": "Number of recent actions to retrieve (default: 10)."}
  },
  "required": [],
  "additionalProperties": false
}`),
			OutputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "history": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "timestamp": {"type": "number"},
          "tool_name": {"type": "string"},
          "success": {"type": "boolean"},
          "result": {"type": "object"}
        }
      }
    }
  },
  "required": ["history"]
}`),
		},
	}
}

// ByName returns the spec for a single tool.
func ByName(name string) (Spec, bool) {
	for _, spec := range Catalog() {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

// Names returns every tool name in catalog order.
func Names() []string {
	catalog := Catalog()
	names := make([]string, len(catalog))
	for i, spec := range catalog {
		names[i] = spec.Name
	}
	return names
}
