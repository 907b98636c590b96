package llm

import (
	"context"
)

// Provider is the abstraction over the external content-generation service.
// The quiz generator sends one prompt per invocation and receives raw text,
// which it is responsible for parsing and validating.
type Provider interface {
	// Complete sends a prompt and returns the model's text output. The call
	// must respect ctx deadlines; a timeout is reported as an error, never as
	// partial output.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}
