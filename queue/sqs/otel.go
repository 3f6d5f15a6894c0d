// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"log/slog"

	"github.com/z5labs/sqslistener"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/sqslistener/queue/sqs"

func logger() *slog.Logger {
	return sqslistener.Logger(instrumentationName)
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

var messagingSystem = semconv.MessagingSystemKey.String("aws_sqs")

type listenerMetrics struct {
	consumed           metric.Int64Counter
	processingFailures metric.Int64Counter
	abandoned          metric.Int64Counter
	skipped            metric.Int64Counter
	deadLetterFailures metric.Int64Counter
	fetchFailures      metric.Int64Counter
	deleteFailures     metric.Int64Counter

	attrs metric.MeasurementOption
}

func newListenerMetrics(queueName string) (listenerMetrics, error) {
	meter := otel.Meter(instrumentationName)

	var m listenerMetrics
	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.consumed, "messaging.client.consumed.messages", "Number of messages received from the queue", "{message}"},
		{&m.processingFailures, "sqs.listener.processing.failures", "Number of failed Process calls", "{failure}"},
		{&m.abandoned, "sqs.listener.messages.abandoned", "Number of messages abandoned after exhausting their retries", "{message}"},
		{&m.skipped, "sqs.listener.messages.skipped", "Number of messages skipped because their body is not valid JSON", "{message}"},
		{&m.deadLetterFailures, "sqs.listener.deadletter.failures", "Number of abandoned messages which could not be published", "{failure}"},
		{&m.fetchFailures, "sqs.listener.fetch.failures", "Number of failed receive calls", "{failure}"},
		{&m.deleteFailures, "sqs.listener.delete.failures", "Number of failed delete calls", "{failure}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(
			c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return listenerMetrics{}, err
		}
		*c.dst = counter
	}

	m.attrs = metric.WithAttributeSet(attribute.NewSet(
		messagingSystem,
		semconv.MessagingDestinationName(queueName),
	))
	return m, nil
}

func (m listenerMetrics) add(ctx context.Context, c metric.Int64Counter, n int) {
	c.Add(ctx, int64(n), m.attrs)
}
