// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"

	"github.com/z5labs/sqslistener/queue"
)

// Handler holds the application logic invoked by a [Listener].
type Handler interface {
	// Process handles a single delivery. A nil error means the message
	// is deleted from the queue.
	Process(context.Context, Delivery) error

	// OnError is called after every failed Process call, before the
	// retry decision is made.
	OnError(context.Context, Delivery, error)

	// OnAbandoned is called once the message has exhausted its retries,
	// before it is published to the dead-letter topic and deleted.
	OnAbandoned(context.Context, Delivery, error)
}

// HandlerFuncs is a [Handler] built from functions. Nil hooks are skipped,
// while a nil ProcessFunc acknowledges every delivery.
type HandlerFuncs struct {
	ProcessFunc     func(context.Context, Delivery) error
	OnErrorFunc     func(context.Context, Delivery, error)
	OnAbandonedFunc func(context.Context, Delivery, error)
}

// Process implements the [Handler] interface.
func (h HandlerFuncs) Process(ctx context.Context, d Delivery) error {
	if h.ProcessFunc == nil {
		return nil
	}
	return h.ProcessFunc(ctx, d)
}

// OnError implements the [Handler] interface.
func (h HandlerFuncs) OnError(ctx context.Context, d Delivery, err error) {
	if h.OnErrorFunc != nil {
		h.OnErrorFunc(ctx, d, err)
	}
}

// OnAbandoned implements the [Handler] interface.
func (h HandlerFuncs) OnAbandoned(ctx context.Context, d Delivery, err error) {
	if h.OnAbandonedFunc != nil {
		h.OnAbandonedFunc(ctx, d, err)
	}
}

// ProcessorHandler adapts a [queue.Processor] into a [Handler] with no-op hooks.
func ProcessorHandler(p queue.Processor[Delivery]) Handler {
	return HandlerFuncs{ProcessFunc: p.Process}
}
