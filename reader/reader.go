// Package reader defines the daemon's data sources. A reader produces a
// batch of messages per scheduler tick; middlewares wrap readers with
// logging, metrics, and panic recovery.
package reader

import (
	"context"

	"github.com/minotaur-io/minotaur/kafka"
)

// Reader is a source the engine polls for batches of messages.
type Reader interface {
	// Name identifies the reader in logs and metrics.
	Name() string
	// Read returns the next batch. An empty batch is not an error.
	Read(ctx context.Context) ([]kafka.Message, error)
	// Close releases the reader's resources.
	Close() error
}

// Func adapts a function to the Reader interface.
type Func struct {
	ReaderName string
	ReadFunc   func(ctx context.Context) ([]kafka.Message, error)
	CloseFunc  func() error
}

var _ Reader = (*Func)(nil)

func (f *Func) Name() string { return f.ReaderName }

func (f *Func) Read(ctx context.Context) ([]kafka.Message, error) {
	if f.ReadFunc != nil {
		return f.ReadFunc(ctx)
	}
	return nil, nil
}

func (f *Func) Close() error {
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}

// Middleware wraps a Reader with additional behavior.
type Middleware func(Reader) Reader

// Chain applies middlewares so the first one listed is outermost.
func Chain(r Reader, middlewares ...Middleware) Reader {
	for i := len(middlewares) - 1; i >= 0; i-- {
		r = middlewares[i](r)
	}
	return r
}
