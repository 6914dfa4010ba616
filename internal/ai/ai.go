// Package ai declares the model capabilities the rest of the application
// depends on. Concrete providers live in sub-packages.
package ai

import "context"

// LanguageModel turns a prompt into generated text.
type LanguageModel interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Embedder maps text to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
