package ai

import (
	"context"
	"fmt"
)

// AnthropicConfig placeholder for anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicGrader is a stub implementation that can be expanded once the SDK
// is adopted.
type AnthropicGrader struct{}

// NewAnthropicGrader constructs a new stub grader.
func NewAnthropicGrader(cfg AnthropicConfig) (*AnthropicGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return &AnthropicGrader{}, nil
}

// GradeAnswer is not yet implemented for Anthropic models.
func (a *AnthropicGrader) GradeAnswer(ctx context.Context, input GradingInput) (GradingResult, error) {
	return GradingResult{}, fmt.Errorf("anthropic grader not implemented")
}
