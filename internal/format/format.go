// Package format converts conversation messages into the wire shapes the
// supported AI providers expect. All transforms are pure: no I/O, no
// registry access, lossless tool-call round trips.
package format

import (
	"fmt"

	"github.com/driftbot/driftbot/internal/schema"
)

// Formatter is the provider-agnostic face of the package: one variant
// per target provider, selected once at startup.
type Formatter interface {
	// FormatMessages produces the provider's request body fragment for
	// the given message sequence. The concrete type depends on the
	// provider; clients use the typed functions below directly.
	FormatMessages(msgs []schema.Message) (any, error)
}

// New returns the formatter for the named provider.
func New(provider string) (Formatter, error) {
	switch provider {
	case "openai":
		return OpenAIFormatter{}, nil
	case "anthropic":
		return AnthropicFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown formatter %q", provider)
	}
}
