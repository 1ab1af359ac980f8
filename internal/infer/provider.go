package infer

import (
	"context"

	"github.com/tberndt/weft/internal/ir"
)

// Prompt is one generation request handed to a provider.
type Prompt struct {
	// Task is the natural-language brief.
	Task string
	// Input is the payload the task operates on, usually structured but
	// any value a node hands over.
	Input ir.Value
	// Schema is the interchange schema the reply must conform to.
	Schema ir.Object
	// Model overrides the provider's default model when non-empty.
	Model string
}

// Provider produces candidate values for prompts. Implementations do not
// validate their replies; the invoker owns validation and retry.
type Provider interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (ir.Value, error)
}
