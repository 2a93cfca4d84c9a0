package port

import "context"

// GenerateOptions tunes a single completion call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator is a text completion service.
type Generator interface {
	// Generate completes the prompt. An empty string is a valid response
	// from the service; callers decide whether it is acceptable.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
