package advisor

import (
	"context"
	"fmt"
)

// Providers lists the names NewProvider accepts.
var Providers = []string{"gemini"}

func NewProvider(ctx context.Context, providerName, apiKey, modelName string) (Provider, error) {
	switch providerName {
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("%s: %w", providerName, ErrMissingAPIKey)
		}
		return NewGeminiProvider(ctx, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
