// Package pipeline defines the daemon's processing stages. A pipeline
// receives the batch a reader produced and transforms, routes, or publishes
// it; middlewares wrap pipelines with logging, metrics, retries, and panic
// recovery.
package pipeline

import (
	"context"

	"github.com/minotaur-io/minotaur/kafka"
)

// Pipeline consumes a batch of messages produced by a reader.
type Pipeline interface {
	// Name identifies the pipeline in logs and metrics.
	Name() string
	// Process handles one batch. Failures do not stop the daemon.
	Process(ctx context.Context, batch []kafka.Message) error
	// Close releases the pipeline's resources.
	Close() error
}

// Func adapts a function to the Pipeline interface.
type Func struct {
	PipelineName string
	ProcessFunc  func(ctx context.Context, batch []kafka.Message) error
	CloseFunc    func() error
}

var _ Pipeline = (*Func)(nil)

func (f *Func) Name() string { return f.PipelineName }

func (f *Func) Process(ctx context.Context, batch []kafka.Message) error {
	if f.ProcessFunc != nil {
		return f.ProcessFunc(ctx, batch)
	}
	return nil
}

func (f *Func) Close() error {
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}

// Middleware wraps a Pipeline with additional behavior.
type Middleware func(Pipeline) Pipeline

// Chain applies middlewares so the first one listed is outermost.
func Chain(p Pipeline, middlewares ...Middleware) Pipeline {
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i](p)
	}
	return p
}
