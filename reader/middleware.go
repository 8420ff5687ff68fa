package reader

import (
	"context"
	"time"

	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/telemetry"
)

// PanicReporter receives recovered panics. *telemetry.Telemetry satisfies it.
type PanicReporter interface {
	CapturePanic(recovered any, scope string)
}

// WithLogging logs each batch at debug level and failures at error level.
func WithLogging(log *logger.Logger) Middleware {
	return func(next Reader) Reader {
		rlog := log.WithComponent("reader").WithFields(map[string]interface{}{
			logger.FieldReader: next.Name(),
		})
		return &Func{
			ReaderName: next.Name(),
			ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
				batch, err := next.Read(ctx)
				if err != nil {
					rlog.WithError(err).Error("Read failed")
					return batch, err
				}
				if len(batch) > 0 {
					rlog.Debug("Read batch", map[string]interface{}{
						"messages": len(batch),
					})
				}
				return batch, nil
			},
			CloseFunc: next.Close,
		}
	}
}

// WithMetrics records batch sizes, durations, and failures.
func WithMetrics() Middleware {
	return func(next Reader) Reader {
		name := next.Name()
		return &Func{
			ReaderName: name,
			ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
				start := time.Now()
				batch, err := next.Read(ctx)
				telemetry.ReaderBatchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
				if err != nil {
					telemetry.ReaderErrors.WithLabelValues(name).Inc()
				}
				telemetry.ReaderMessages.WithLabelValues(name).Add(float64(len(batch)))
				return batch, err
			},
			CloseFunc: next.Close,
		}
	}
}

// WithRecovery converts a panicking reader into an empty batch, reporting the
// panic. A nil reporter only suppresses the panic.
func WithRecovery(reporter PanicReporter) Middleware {
	return func(next Reader) Reader {
		name := next.Name()
		return &Func{
			ReaderName: name,
			ReadFunc: func(ctx context.Context) (batch []kafka.Message, err error) {
				defer func() {
					if r := recover(); r != nil {
						if reporter != nil {
							reporter.CapturePanic(r, "reader."+name)
						}
						batch, err = nil, nil
					}
				}()
				return next.Read(ctx)
			},
			CloseFunc: next.Close,
		}
	}
}
