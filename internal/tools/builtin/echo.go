package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/tools"
)

// Echo returns a tool that echoes its text argument back verbatim.
func Echo() schema.Tool {
	return tools.Func{
		ToolName:        "echo",
		ToolDescription: "Echo the given text back to the caller.",
		ParamSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "Text to echo"}
  },
  "required": ["text"]
}`),
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			text, ok := args["text"].(string)
			if !ok {
				return "", fmt.Errorf("text must be a string")
			}
			return text, nil
		},
	}
}
