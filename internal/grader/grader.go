// Package grader runs submissions against a problem's tests.
package grader

import (
	"context"
	"log/slog"

	"github.com/mcoot/codeduel-go/internal/config"
	"github.com/mcoot/codeduel-go/internal/dependencies/random"
	"github.com/mcoot/codeduel-go/internal/model"
)

// Grader is the external grading collaborator
type Grader interface {
	Grade(ctx context.Context, code string, problem model.Problem) (model.GradeReport, error)
}

// New picks Judge0 with a static fallback when an API key is configured,
// otherwise the static grader alone
func New(cfg config.GraderConfig, rnd random.Random, logger *slog.Logger) Grader {
	static := NewStatic(rnd)
	if !cfg.UseJudge0() {
		logger.Warn("judge0 api key not configured, using static grader")
		return static
	}
	return WithFallback(NewJudge0(cfg, logger), static, logger)
}

type fallback struct {
	primary   Grader
	secondary Grader
	logger    *slog.Logger
}

// WithFallback grades with primary and retries on secondary when primary errors
func WithFallback(primary, secondary Grader, logger *slog.Logger) Grader {
	return &fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(slog.String("component", "grader")),
	}
}

func (f *fallback) Grade(ctx context.Context, code string, problem model.Problem) (model.GradeReport, error) {
	report, err := f.primary.Grade(ctx, code, problem)
	if err == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		return model.GradeReport{}, err
	}
	f.logger.Warn("primary grader failed, falling back",
		slog.String("problem_id", string(problem.ID)),
		slog.Any("error", err))
	return f.secondary.Grade(ctx, code, problem)
}
