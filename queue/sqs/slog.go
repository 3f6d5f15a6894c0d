// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import "log/slog"

// QueueAttr returns a slog attribute for the queue name.
func QueueAttr(name string) slog.Attr {
	return slog.String("messaging.destination.name", name)
}

// MessageIDAttr returns a slog attribute for a message id.
func MessageIDAttr(id string) slog.Attr {
	return slog.String("messaging.message.id", id)
}

// FailureCountAttr returns a slog attribute for the number of recorded failures.
func FailureCountAttr(n int) slog.Attr {
	return slog.Int("sqs.listener.failure.count", n)
}

// BatchSizeAttr returns a slog attribute for the size of a fetched batch.
func BatchSizeAttr(n int) slog.Attr {
	return slog.Int("messaging.batch.message_count", n)
}
