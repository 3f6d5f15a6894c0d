// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides the building blocks for constructing and running
// long lived processes such as queue listeners.
//
// An application is described by a [Builder] which, once built, yields a
// [Runtime]. Builders compose: telemetry, health endpoints and cleanup hooks
// are all layered on top of the core runtime by wrapping its builder.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/z5labs/sdk-go/try"
)

// Builder builds a T, typically a [Runtime].
type Builder[T any] interface {
	Build(context.Context) (T, error)
}

// BuilderFunc is an adapter to allow the use of ordinary functions as [Builder]s.
type BuilderFunc[T any] func(context.Context) (T, error)

// Build implements the [Builder] interface.
func (f BuilderFunc[T]) Build(ctx context.Context) (T, error) {
	return f(ctx)
}

// Bind chains two [Builder]s where the result of the first one is used to
// select the second.
func Bind[A, B any](builder Builder[A], binder func(A) Builder[B]) Builder[B] {
	return BuilderFunc[B](func(ctx context.Context) (B, error) {
		a, err := builder.Build(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return binder(a).Build(ctx)
	})
}

// Runtime is a runnable application component.
type Runtime interface {
	Run(context.Context) error
}

// RuntimeFunc is an adapter to allow the use of ordinary functions as [Runtime]s.
type RuntimeFunc func(context.Context) error

// Run implements the [Runtime] interface.
func (f RuntimeFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Run builds the [Runtime] and runs it until it returns or the process
// receives SIGINT or SIGTERM, at which point the context given to the
// runtime is cancelled.
//
// Panics raised while building, such as those from config.Must, are
// recovered and returned as errors.
func Run[T Runtime](ctx context.Context, builder Builder[T]) (err error) {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := build(sigCtx, builder)
	if err != nil {
		return err
	}

	return rt.Run(sigCtx)
}

func build[T any](ctx context.Context, builder Builder[T]) (t T, err error) {
	defer try.Recover(&err)

	return builder.Build(ctx)
}

// LogError logs err, if any, to the given handler.
func LogError(handler slog.Handler, err error) {
	if err == nil {
		return
	}

	log := slog.New(handler)
	log.Error("application error", slog.Any("error", err))
}
