// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package queue defines the generic building blocks of a queue listener.
//
// A listener is split into three phases:
//
//   - Consumer: retrieves the next item, or batch, from a queue
//   - Processor: runs the business logic for a single item
//   - Acknowledger: removes a handled item from the queue
//
// A [QueueRuntime] orchestrates the phases until its context is cancelled.
// [Build] turns one or more QueueRuntimes into an [app.Runtime], running each
// of them on its own goroutine.
package queue

import (
	"context"
	"log/slog"
	"os"

	"github.com/z5labs/sqslistener/app"

	"github.com/sourcegraph/conc/pool"
)

// Consumer retrieves items from a queue.
type Consumer[T any] interface {
	Consume(context.Context) (T, error)
}

// ConsumerFunc is an adapter to allow the use of ordinary functions as [Consumer]s.
type ConsumerFunc[T any] func(context.Context) (T, error)

// Consume implements the [Consumer] interface.
func (f ConsumerFunc[T]) Consume(ctx context.Context) (T, error) {
	return f(ctx)
}

// Processor runs business logic for a single item.
type Processor[T any] interface {
	Process(context.Context, T) error
}

// ProcessorFunc is an adapter to allow the use of ordinary functions as [Processor]s.
type ProcessorFunc[T any] func(context.Context, T) error

// Process implements the [Processor] interface.
func (f ProcessorFunc[T]) Process(ctx context.Context, t T) error {
	return f(ctx, t)
}

// Acknowledger removes a handled item from its queue.
type Acknowledger[T any] interface {
	Acknowledge(context.Context, T) error
}

// AcknowledgerFunc is an adapter to allow the use of ordinary functions as [Acknowledger]s.
type AcknowledgerFunc[T any] func(context.Context, T) error

// Acknowledge implements the [Acknowledger] interface.
func (f AcknowledgerFunc[T]) Acknowledge(ctx context.Context, t T) error {
	return f(ctx, t)
}

// QueueRuntime processes a queue until the context is cancelled or an
// unrecoverable error occurs.
type QueueRuntime interface {
	ProcessQueue(context.Context) error
}

// QueueRuntimeFunc is an adapter to allow the use of ordinary functions as [QueueRuntime]s.
type QueueRuntimeFunc func(context.Context) error

// ProcessQueue implements the [QueueRuntime] interface.
func (f QueueRuntimeFunc) ProcessQueue(ctx context.Context) error {
	return f(ctx)
}

// Runtime is an [app.Runtime] running a set of [QueueRuntime]s.
type Runtime struct {
	queueRuntimes []QueueRuntime
}

// Run implements the [app.Runtime] interface.
//
// Every QueueRuntime runs on its own goroutine. The first one to fail
// cancels the others and all of their errors are returned together.
func (rt Runtime) Run(ctx context.Context) error {
	switch len(rt.queueRuntimes) {
	case 0:
		return nil
	case 1:
		return rt.queueRuntimes[0].ProcessQueue(ctx)
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, qr := range rt.queueRuntimes {
		p.Go(qr.ProcessQueue)
	}
	return p.Wait()
}

// Build returns a [app.Builder] for a [Runtime] over the given QueueRuntimes.
func Build(queueRuntimes ...QueueRuntime) app.Builder[Runtime] {
	return app.BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		return Runtime{queueRuntimes: queueRuntimes}, nil
	})
}

// RunOptions are used for configuring the behaviour of [Run].
type RunOptions struct {
	logger *slog.Logger
}

// RunOption sets a value on [RunOptions].
type RunOption interface {
	ApplyRunOption(*RunOptions)
}

type runOptionFunc func(*RunOptions)

func (f runOptionFunc) ApplyRunOption(ro *RunOptions) {
	f(ro)
}

// LogHandler overrides the handler used to report errors from [Run].
// By default errors are written to stdout as JSON.
func LogHandler(h slog.Handler) RunOption {
	return runOptionFunc(func(ro *RunOptions) {
		ro.logger = slog.New(h)
	})
}

// Run builds and runs a [Runtime], logging any error it returns.
func Run[T app.Runtime](ctx context.Context, builder app.Builder[T], opts ...RunOption) error {
	ro := &RunOptions{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt.ApplyRunOption(ro)
	}

	err := app.Run(ctx, builder)
	if err != nil {
		app.LogError(ro.logger.Handler(), err)
	}
	return err
}
