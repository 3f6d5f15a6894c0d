// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sqslistener provides a framework for building SQS queue listeners.
//
// A listener long-polls a queue, hands every JSON message to a user supplied
// handler and, when the handler keeps failing for the same message, abandons
// the message by publishing it to a dead-letter topic and deleting it from
// the queue. See the queue/sqs package for the listener itself.
package sqslistener

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which emits records through the globally
// registered OpenTelemetry logger provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}
