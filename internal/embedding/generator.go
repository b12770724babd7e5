package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assignhelper/internal/config"
	"assignhelper/internal/providers"
)

// ErrEmbeddingUnavailable is returned, wrapped, whenever no vector could be produced.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

const operation = "embed_text"

type Generator struct {
	provider providers.EmbeddingProvider
	dim      int
	maxChars int
	timeout  time.Duration
}

func NewGenerator(p providers.EmbeddingProvider, cfg config.Config) *Generator {
	maxChars := cfg.EmbedMaxChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Generator{provider: p, dim: cfg.EmbedDim, maxChars: maxChars, timeout: cfg.EmbedTimeout}
}

// Generate embeds text with a single provider attempt. On failure the vector
// is nil and the error wraps ErrEmbeddingUnavailable.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, providers.ProviderInfo, error) {
	if g == nil || g.provider == nil {
		return nil, providers.ProviderInfo{}, fmt.Errorf("%w: no provider configured", ErrEmbeddingUnavailable)
	}
	text = Truncate(strings.TrimSpace(text), g.maxChars)
	if text == "" {
		return nil, providers.ProviderInfo{}, fmt.Errorf("%w: empty input", ErrEmbeddingUnavailable)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vecs, info, err := g.provider.Embed(ctx, providers.EmbedRequest{
		Operation: operation,
		Inputs:    []string{text},
		Dimension: g.dim,
	})
	if err != nil {
		return nil, info, fmt.Errorf("%w: %s: %v", ErrEmbeddingUnavailable, providers.ClassifyError(err), err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, info, fmt.Errorf("%w: provider %s returned no vector", ErrEmbeddingUnavailable, info.Name)
	}
	if g.dim > 0 && len(vecs[0]) != g.dim {
		return nil, info, fmt.Errorf("%w: provider %s returned %d dimensions, want %d", ErrEmbeddingUnavailable, info.Name, len(vecs[0]), g.dim)
	}
	return vecs[0], info, nil
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
