package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/telemetry"
)

// PanicReporter receives recovered panics. *telemetry.Telemetry satisfies it.
type PanicReporter interface {
	CapturePanic(recovered any, scope string)
}

// WithLogging logs each processed batch at debug level and failures at
// error level.
func WithLogging(log *logger.Logger) Middleware {
	return func(next Pipeline) Pipeline {
		plog := log.WithComponent("pipeline").WithFields(map[string]interface{}{
			logger.FieldPipeline: next.Name(),
		})
		return &Func{
			PipelineName: next.Name(),
			ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
				if err := next.Process(ctx, batch); err != nil {
					plog.WithError(err).Error("Process failed", map[string]interface{}{
						"messages": len(batch),
					})
					return err
				}
				plog.Debug("Processed batch", map[string]interface{}{
					"messages": len(batch),
				})
				return nil
			},
			CloseFunc: next.Close,
		}
	}
}

// WithMetrics records processed message counts, durations, and failures.
func WithMetrics() Middleware {
	return func(next Pipeline) Pipeline {
		name := next.Name()
		return &Func{
			PipelineName: name,
			ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
				start := time.Now()
				err := next.Process(ctx, batch)
				telemetry.PipelineDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
				if err != nil {
					telemetry.PipelineErrors.WithLabelValues(name).Inc()
					return err
				}
				telemetry.PipelineMessages.WithLabelValues(name).Add(float64(len(batch)))
				return nil
			},
			CloseFunc: next.Close,
		}
	}
}

// WithRecovery converts a panicking pipeline into a PipelineFailed error,
// reporting the panic. A nil reporter only suppresses the panic.
func WithRecovery(reporter PanicReporter) Middleware {
	return func(next Pipeline) Pipeline {
		name := next.Name()
		return &Func{
			PipelineName: name,
			ProcessFunc: func(ctx context.Context, batch []kafka.Message) (err error) {
				defer func() {
					if r := recover(); r != nil {
						if reporter != nil {
							reporter.CapturePanic(r, "pipeline."+name)
						}
						err = errors.PipelineFailed(name, fmt.Errorf("panic: %v", r))
					}
				}()
				return next.Process(ctx, batch)
			},
			CloseFunc: next.Close,
		}
	}
}

// WithRetry retries retryable failures up to attempts times, sleeping
// backoff, 2*backoff, ... between tries. Non-retryable errors and context
// cancellation fail immediately.
func WithRetry(attempts int, backoff time.Duration) Middleware {
	if attempts < 1 {
		attempts = 1
	}
	return func(next Pipeline) Pipeline {
		return &Func{
			PipelineName: next.Name(),
			ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
				var err error
				for attempt := 1; attempt <= attempts; attempt++ {
					err = next.Process(ctx, batch)
					if err == nil || !errors.IsRetryable(err) {
						return err
					}
					if attempt == attempts {
						break
					}
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(time.Duration(attempt) * backoff):
					}
				}
				return err
			},
			CloseFunc: next.Close,
		}
	}
}
