// Package offline provides a deterministic ports.Generator that needs no
// network: it returns the draft it is given.
package offline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/coach/pkg/ports"
)

// Generator echoes Prompt.Draft.
type Generator struct{}

var _ ports.Generator = Generator{}

// New returns an offline generator.
func New() Generator { return Generator{} }

// Generate returns the draft. A prompt without a draft is a failure, which
// lets the engine fall back to its static replies.
func (Generator) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(p.Draft) == "" {
		return "", fmt.Errorf("%w: offline generator needs a draft", ports.ErrGenerationFailed)
	}
	return p.Draft, nil
}
