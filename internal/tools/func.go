package tools

import (
	"context"
	"encoding/json"
)

// Func adapts a plain function into a schema.Tool: an immutable
// descriptor paired with a callable, built explicitly at registration
// time.
type Func struct {
	ToolName        string
	ToolDescription string
	ParamSchema     json.RawMessage
	Fn              func(ctx context.Context, args map[string]any) (string, error)
}

func (f Func) Name() string                { return f.ToolName }
func (f Func) Description() string         { return f.ToolDescription }
func (f Func) Parameters() json.RawMessage { return f.ParamSchema }

func (f Func) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}
