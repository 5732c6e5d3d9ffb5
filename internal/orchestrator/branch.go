package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/schema"
)

// BranchFunc produces one branch payload. The source label records where the
// payload came from (llm, search, fallback).
type BranchFunc func(ctx context.Context) (payload any, source string, err error)

// Branch is one recommendation-producing unit in the orchestration tree.
type Branch struct {
	ID  string
	Run BranchFunc
}

// runBranch executes a branch and normalizes its result into an outcome.
// A panic inside the branch (a fallback generator is contractually
// non-failing, so a panic there is a programming error) maps to Failure.
func runBranch(ctx context.Context, b Branch) (out model.BranchOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("branch: panic",
				zap.String("branch", b.ID),
				zap.Any("panic", r),
			)
			out = model.Failed(b.ID, "", fmt.Sprintf("panic: %v", r), time.Since(start))
		}
	}()

	payload, source, err := b.Run(ctx)
	duration := time.Since(start)
	if err != nil {
		zap.L().Warn("branch: failed",
			zap.String("branch", b.ID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		failed := model.Failed(b.ID, source, err.Error(), duration)
		// A failing composite still reports its leaf outcomes.
		failed.Payload = payload
		return failed
	}

	zap.L().Debug("branch: complete",
		zap.String("branch", b.ID),
		zap.String("source", source),
		zap.Duration("duration", duration),
	)
	return model.Succeeded(b.ID, source, payload, duration)
}

// extractingBranch builds a branch around the standard leaf pipeline:
// call the producer, extract a structured record against spec, and on any
// capability, extraction, or schema failure degrade to the deterministic
// fallback. The fallback must always yield a valid payload; only a panic
// inside it surfaces as a failed branch.
func extractingBranch[T any](id string, retry resilience.RetryConfig, producer func(ctx context.Context) (string, error), spec schema.FieldSpec, fallback func() T) Branch {
	return Branch{
		ID: id,
		Run: func(ctx context.Context) (any, string, error) {
			raw, err := resilience.DoVal(ctx, retry, id, producer)
			if err != nil {
				zap.L().Warn("branch: producer failed, using fallback",
					zap.String("branch", id),
					zap.Error(model.CapabilityError(id, err)),
				)
				return fallback(), model.SourceFallback, nil
			}

			var out T
			if err := schema.Decode(raw, spec, &out); err != nil {
				zap.L().Warn("branch: extraction failed, using fallback",
					zap.String("branch", id),
					zap.String("kind", string(model.KindOf(err))),
					zap.Error(err),
				)
				return fallback(), model.SourceFallback, nil
			}
			return out, model.SourceLLM, nil
		},
	}
}
