package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-travel/types"
)

// Fanout runs every slot concurrently and waits for all of them. A slot
// that fails, panics or runs out of time resolves to a Failure; the other
// slots keep running and the fan-out itself never fails.
type Fanout struct {
	ctx     context.Context
	timeout time.Duration
	logger  types.Logger
	metrics types.MetricsManager
	group   errgroup.Group
}

// NewFanout creates a group bounded by timeout per slot. metrics may be nil.
func NewFanout(ctx context.Context, timeout time.Duration, logger types.Logger, metrics types.MetricsManager) *Fanout {
	return &Fanout{
		ctx:     ctx,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Go starts one slot. The returned Result is filled in by Wait and must
// not be read before it returns.
func Go[T any](f *Fanout, name string, fetch func(ctx context.Context) (T, error)) *Result[T] {
	res := new(Result[T])

	f.group.Go(func() error {
		start := time.Now()
		*res = call(f.ctx, f.timeout, name, fetch)
		f.record(name, start, res.Err)
		return nil
	})

	return res
}

func (f *Fanout) Wait() {
	_ = f.group.Wait()
}

func (f *Fanout) record(name string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
		f.logger.Debug("Slot degraded",
			zap.String("slot", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}

	if f.metrics == nil {
		return
	}

	labels := map[string]string{"slot": name, "result": result}
	f.metrics.Counter("aggregator_slots_total", labels).Inc()
	f.metrics.Histogram("aggregator_slot_duration_seconds",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		labels,
	).ObserveDuration(start)
}

// call bounds fetch by timeout even when fetch ignores its context; a
// late result is dropped.
func call[T any](ctx context.Context, timeout time.Duration, name string, fetch func(ctx context.Context) (T, error)) Result[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failure[T](types.Errorf(types.ErrSlotPanic, "%s: %v", name, r))
			}
		}()

		value, err := fetch(ctx)
		if err != nil {
			done <- Failure[T](err)
			return
		}
		done <- Success(value)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Failure[T](types.Errorf(types.ErrUpstreamUnavailable, "%s: %v", name, ctx.Err()))
	}
}
