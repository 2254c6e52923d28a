package llm

import (
	"context"
	"fmt"

	"recipe-planner/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFromConfig builds the TextGenerator selected by cfg.AIProvider.
// It returns a nil generator when generation is disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, Closer, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderGroq:
		return NewGroqClient(cfg, 0.3), nopCloser{}, nil
	case config.ProviderNone:
		return nil, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}
}
