// Package providers implements ChatClient adapters for the supported
// AI services.
package providers

import (
	"fmt"

	"github.com/driftbot/driftbot/internal/schema"
)

// AIError wraps a transport or API failure from a hosted AI service.
// It is fatal for the request cycle; no retries happen at this layer.
type AIError struct {
	Provider string
	Err      error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai service %s: %v", e.Provider, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }

// Params carries the raw config values a provider needs. The caller
// extracts these from config.Config to avoid an import cycle.
type Params struct {
	Provider string // "openai" (default) or "anthropic"
	APIKey   string
	APIBase  string
	Model    string
}

// New builds the ChatClient selected by p.Provider.
func New(p Params) (schema.ChatClient, error) {
	switch p.Provider {
	case "", "openai":
		return NewOpenAIClient(p.APIKey, p.APIBase, p.Model), nil
	case "anthropic":
		return NewAnthropicClient(p.APIKey, p.APIBase, p.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Provider)
	}
}
