// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/z5labs/sqslistener/health"
	"github.com/z5labs/sqslistener/notify"
	"github.com/z5labs/sqslistener/queue"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cenkalti/backoff/v5"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
	"go.opentelemetry.io/otel/trace"
)

// ListenerOptions configure the collaborators of a [Listener].
type ListenerOptions struct {
	deadLetter notify.Publisher
	health     health.Reporter
	backoff    *backoff.ExponentialBackOff
}

// ListenerOption sets a value on [ListenerOptions].
type ListenerOption func(*ListenerOptions)

// DeadLetterPublisher sets where abandoned messages are published.
// Without one, abandoned messages are only deleted.
func DeadLetterPublisher(p notify.Publisher) ListenerOption {
	return func(lo *ListenerOptions) {
		lo.deadLetter = p
	}
}

// HealthReporter is marked healthy after every successful fetch and
// unhealthy after every failed one.
func HealthReporter(r health.Reporter) ListenerOption {
	return func(lo *ListenerOptions) {
		lo.health = r
	}
}

// FetchBackOff overrides the backoff used between failed fetches.
func FetchBackOff(b *backoff.ExponentialBackOff) ListenerOption {
	return func(lo *ListenerOptions) {
		lo.backoff = b
	}
}

// Listener long polls a single queue and dispatches each message to a [Handler].
//
// Messages are handled one at a time in the order they were received.
// A message whose Process call fails stays on the queue for redelivery
// until it has failed more than MaxRetries times in a row, at which point it
// is abandoned: OnAbandoned is called, the message is published to the
// dead-letter publisher, if any, and deleted.
type Listener struct {
	name     string
	consumer queue.Consumer[[]Message]
	acker    queue.Acknowledger[Message]
	handler  Handler
	tracker  *FailureTracker
	settings settings

	deadLetter notify.Publisher
	health     health.Reporter
	backoff    *backoff.ExponentialBackOff

	log     *slog.Logger
	tracer  trace.Tracer
	metrics listenerMetrics
}

// NewListener verifies credentials, resolves the configured queue and
// returns a [Listener] for it. Every failure is a [ConfigurationError].
func NewListener(
	ctx context.Context,
	api API,
	creds aws.CredentialsProvider,
	handler Handler,
	cfg Config,
	opts ...ListenerOption,
) (*Listener, error) {
	if handler == nil {
		return nil, ConfigurationError{Reason: "handler is required"}
	}

	s, err := cfg.read(ctx)
	if err != nil {
		return nil, err
	}

	err = VerifyCredentials(ctx, creds, s.accountID)
	if err != nil {
		return nil, err
	}

	q, err := ResolveQueue(ctx, api, s.queueName, s.accountID)
	if err != nil {
		return nil, err
	}

	return newListener(q, handler, s, opts...)
}

func newListener(q *Queue, handler Handler, s settings, opts ...ListenerOption) (*Listener, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute

	lo := &ListenerOptions{backoff: bo}
	for _, opt := range opts {
		opt(lo)
	}

	metrics, err := newListenerMetrics(q.name)
	if err != nil {
		return nil, err
	}

	consumer := queue.ConsumerFunc[[]Message](func(ctx context.Context) ([]Message, error) {
		return q.Fetch(ctx, s.fetchOptions())
	})

	return &Listener{
		name:       q.name,
		consumer:   consumer,
		acker:      q,
		handler:    handler,
		tracker:    NewFailureTracker(),
		settings:   s,
		deadLetter: lo.deadLetter,
		health:     lo.health,
		backoff:    lo.backoff,
		log:        logger().With(QueueAttr(q.name)),
		tracer:     tracer(),
		metrics:    metrics,
	}, nil
}

// ProcessQueue implements the [queue.QueueRuntime] interface.
//
// It polls until ctx is cancelled and then returns nil. Cancellation is
// observed before each fetch, during the fetch and between messages, so
// a message is never left half handled.
func (l *Listener) ProcessQueue(ctx context.Context) error {
	l.log.InfoContext(ctx, "listening for messages")
	defer l.log.InfoContext(context.WithoutCancel(ctx), "stopped listening for messages")

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := l.consumer.Consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			l.fetchFailed(ctx, err)
			continue
		}
		l.fetchSucceeded()

		if len(msgs) == 0 {
			sleep(ctx, l.settings.pollInterval)
			continue
		}

		l.metrics.add(ctx, l.metrics.consumed, len(msgs))
		l.log.DebugContext(ctx, "received messages", BatchSizeAttr(len(msgs)))

		for _, m := range msgs {
			l.handle(context.WithoutCancel(ctx), m)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (l *Listener) fetchFailed(ctx context.Context, err error) {
	wait := l.backoff.NextBackOff()
	l.log.ErrorContext(ctx, "failed to fetch messages", slog.Duration("retry_in", wait), slog.Any("error", err))
	l.metrics.add(ctx, l.metrics.fetchFailures, 1)
	if l.health != nil {
		l.health.MarkUnhealthy()
	}
	sleep(ctx, wait)
}

func (l *Listener) fetchSucceeded() {
	l.backoff.Reset()
	if l.health != nil {
		l.health.MarkHealthy()
	}
}

func (l *Listener) handle(ctx context.Context, m Message) {
	spanCtx, span := l.tracer.Start(
		ctx,
		"process "+l.name,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			messagingSystem,
			semconv.MessagingOperationTypeProcess,
			semconv.MessagingDestinationName(l.name),
			semconv.MessagingMessageID(m.ID),
		),
	)
	defer span.End()

	d, err := decode(m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid message body")
		l.log.WarnContext(spanCtx, "skipping message with invalid body", MessageIDAttr(m.ID), slog.Any("error", err))
		l.metrics.add(spanCtx, l.metrics.skipped, 1)
		return
	}

	err = l.process(spanCtx, d)
	if err == nil {
		l.delete(spanCtx, m)
		l.tracker.Clear(m.ID)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.metrics.add(spanCtx, l.metrics.processingFailures, 1)

	l.handler.OnError(spanCtx, d, err)

	count := l.tracker.Count(m.ID)
	if count >= l.settings.maxRetries {
		l.abandon(spanCtx, m, d, err, count)
		return
	}

	count = l.tracker.Increment(m.ID)
	l.log.WarnContext(
		spanCtx,
		"failed to process message, leaving it for redelivery",
		MessageIDAttr(m.ID),
		FailureCountAttr(count),
		slog.Any("error", err),
	)
}

func (l *Listener) process(ctx context.Context, d Delivery) error {
	if l.settings.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.settings.processTimeout)
		defer cancel()
	}

	err := l.callProcess(ctx, d)
	if err != nil {
		return ProcessingError{MessageID: d.MessageID, Cause: err}
	}
	return nil
}

func (l *Listener) callProcess(ctx context.Context, d Delivery) (err error) {
	defer try.Recover(&err)

	return l.handler.Process(ctx, d)
}

func (l *Listener) abandon(ctx context.Context, m Message, d Delivery, cause error, failures int) {
	l.log.ErrorContext(
		ctx,
		"abandoning message after exhausting retries",
		MessageIDAttr(m.ID),
		FailureCountAttr(failures+1),
		slog.Any("error", cause),
	)
	l.metrics.add(ctx, l.metrics.abandoned, 1)

	l.handler.OnAbandoned(ctx, d, cause)

	if l.deadLetter != nil {
		err := l.publishDeadLetter(ctx, d)
		if err != nil {
			l.log.ErrorContext(ctx, "failed to publish abandoned message", MessageIDAttr(m.ID), slog.Any("error", err))
			l.metrics.add(ctx, l.metrics.deadLetterFailures, 1)
		}
	}

	l.delete(ctx, m)
	l.tracker.Clear(m.ID)
}

func (l *Listener) publishDeadLetter(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d.Payload)
	if err != nil {
		return AbandonmentPublishError{MessageID: d.MessageID, Cause: err}
	}

	err = l.deadLetter.Publish(ctx, notify.Notification{
		Subject:    DefaultErrorSubject,
		Body:       body,
		Attributes: d.MessageAttributes,
	})
	if err != nil {
		return AbandonmentPublishError{MessageID: d.MessageID, Cause: err}
	}
	return nil
}

// delete failures are only logged since the message will simply be
// redelivered once its visibility timeout expires.
func (l *Listener) delete(ctx context.Context, m Message) {
	err := l.acker.Acknowledge(ctx, m)
	if err != nil {
		l.log.ErrorContext(ctx, "failed to delete message", MessageIDAttr(m.ID), slog.Any("error", err))
		l.metrics.add(ctx, l.metrics.deleteFailures, 1)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
