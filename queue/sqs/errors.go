// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import "fmt"

// ConfigurationError is returned while building a [Listener] when its
// configuration is invalid, credentials cannot be established or the
// queue cannot be found. It is never retried.
type ConfigurationError struct {
	Reason string
	Cause  error
}

func (e ConfigurationError) Error() string {
	if e.Cause == nil {
		return "sqs: invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("sqs: invalid configuration: %s: %s", e.Reason, e.Cause)
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// DecodeError is logged when a message body is not well-formed JSON.
// Such messages are skipped and left on the queue.
type DecodeError struct {
	MessageID string
	Cause     error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("sqs: failed to decode message %s: %s", e.MessageID, e.Cause)
}

func (e DecodeError) Unwrap() error {
	return e.Cause
}

// ProcessingError wraps the error returned, or the panic raised, by
// [Handler.Process]. It is what OnError and OnAbandoned receive.
type ProcessingError struct {
	MessageID string
	Cause     error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("sqs: failed to process message %s: %s", e.MessageID, e.Cause)
}

func (e ProcessingError) Unwrap() error {
	return e.Cause
}

// AbandonmentPublishError is logged when an abandoned message could not be
// published to the dead-letter topic. The message is still deleted.
type AbandonmentPublishError struct {
	MessageID string
	Cause     error
}

func (e AbandonmentPublishError) Error() string {
	return fmt.Sprintf("sqs: failed to publish abandoned message %s: %s", e.MessageID, e.Cause)
}

func (e AbandonmentPublishError) Unwrap() error {
	return e.Cause
}
