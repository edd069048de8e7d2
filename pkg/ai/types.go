package ai

import "context"

// GradingInput carries one answered question to the AI grader.
type GradingInput struct {
	Question  string
	Answer    string
	MaxPoints float64
}

// GradingResult is the structured outcome returned by the grader. Grade is
// always within [0, MaxPoints].
type GradingResult struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
}

// Grader describes a model capable of scoring a free-text answer. Calls are
// best-effort: failures surface to the caller and never crash a grading
// session.
type Grader interface {
	GradeAnswer(ctx context.Context, input GradingInput) (GradingResult, error)
}
