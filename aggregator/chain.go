package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

// Candidate is one entry of a fallback chain. A nil Available means the
// candidate is always available.
type Candidate[T any] struct {
	Name      string
	Available func() bool
	Fetch     func(ctx context.Context) (T, error)
}

// Chain tries its candidates in order and returns the first usable result.
// A candidate is skipped when unavailable, and passed over when it fails
// or its value is empty.
type Chain[T any] struct {
	candidates []Candidate[T]
	empty      func(T) bool
	logger     types.Logger
}

func NewChain[T any](logger types.Logger, empty func(T) bool, candidates ...Candidate[T]) *Chain[T] {
	return &Chain[T]{
		candidates: candidates,
		empty:      empty,
		logger:     logger,
	}
}

// Run returns the winning value and the name of the candidate that
// produced it.
func (c *Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	var lastErr error

	for _, candidate := range c.candidates {
		if candidate.Available != nil && !candidate.Available() {
			c.logger.Debug("Candidate unavailable", zap.String("candidate", candidate.Name))
			continue
		}

		value, err := candidate.Fetch(ctx)
		if err == nil && c.empty != nil && c.empty(value) {
			err = types.ErrEmptyResult
		}
		if err != nil {
			c.logger.Debug("Candidate failed, trying next",
				zap.String("candidate", candidate.Name),
				zap.Error(err))
			lastErr = err
			continue
		}

		return value, candidate.Name, nil
	}

	if lastErr == nil {
		return zero, "", types.Errorf(types.ErrNoCandidate, "no candidate available")
	}
	return zero, "", types.WrapError(types.ErrNoCandidate, lastErr.Error())
}
