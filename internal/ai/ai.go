package ai

import (
	"context"
	"strings"
)

// Prompt is a single model request: a system instruction plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Constraints narrows what the model may return.
type Constraints struct {
	Temperature     float32
	MaxOutputTokens int32
	// JSON asks the provider for an application/json response.
	JSON bool
}

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt, constraints Constraints) (string, error)
}

// Render substitutes {{KEY}} placeholders in template with the given values.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
