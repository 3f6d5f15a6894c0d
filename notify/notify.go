// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package notify publishes notifications to a topic.
//
// It is used by the SQS listener to dead-letter abandoned messages and by
// applications to emit domain events. Implementations live in the sns and
// kafka sub-packages.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Notification is a single message published to a topic.
type Notification struct {
	Subject    string
	Body       []byte
	Attributes map[string]string
}

// Publisher publishes notifications to a fixed topic.
type Publisher interface {
	Publish(context.Context, Notification) error
}

// PublisherFunc is an adapter to allow the use of ordinary functions as [Publisher]s.
type PublisherFunc func(context.Context, Notification) error

// Publish implements the [Publisher] interface.
func (f PublisherFunc) Publish(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Attribute names set by [PublishEvent].
const (
	EventTypeAttribute  = "EventType"
	ActivityIDAttribute = "ActivityID"
)

// Event is an application event published as JSON.
type Event struct {
	Type string

	// ActivityID correlates events belonging to the same activity.
	// A random id is generated when it is empty.
	ActivityID string

	Subject string
	Payload any
}

// PublishEvent marshals the event payload to JSON and publishes it with
// EventType and ActivityID attributes. It returns the activity id used.
func PublishEvent(ctx context.Context, p Publisher, e Event) (string, error) {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return "", fmt.Errorf("notify: failed to marshal %s event: %w", e.Type, err)
	}

	activityID := e.ActivityID
	if activityID == "" {
		activityID = uuid.NewString()
	}

	err = p.Publish(ctx, Notification{
		Subject: e.Subject,
		Body:    body,
		Attributes: map[string]string{
			EventTypeAttribute:  e.Type,
			ActivityIDAttribute: activityID,
		},
	})
	if err != nil {
		return "", err
	}
	return activityID, nil
}

// ErrCircuitOpen is returned by a [WithCircuitBreaker] publisher while the
// breaker is open and publishes are being rejected.
var ErrCircuitOpen = errors.New("notify: circuit breaker is open")

// BreakerOptions configure [WithCircuitBreaker].
type BreakerOptions struct {
	name        string
	maxFailures uint32
	openTimeout time.Duration
}

// BreakerOption sets a value on [BreakerOptions].
type BreakerOption func(*BreakerOptions)

// BreakerName names the breaker in its state change callbacks.
func BreakerName(name string) BreakerOption {
	return func(bo *BreakerOptions) { bo.name = name }
}

// MaxConsecutiveFailures sets how many consecutive failures open the breaker.
func MaxConsecutiveFailures(n uint32) BreakerOption {
	return func(bo *BreakerOptions) { bo.maxFailures = n }
}

// OpenTimeout sets how long the breaker stays open before letting a trial
// publish through.
func OpenTimeout(d time.Duration) BreakerOption {
	return func(bo *BreakerOptions) { bo.openTimeout = d }
}

type breakerPublisher struct {
	publisher Publisher
	cb        *gobreaker.CircuitBreaker[struct{}]
}

// WithCircuitBreaker wraps p so that after repeated failures publishes are
// rejected with [ErrCircuitOpen] instead of reaching the topic.
func WithCircuitBreaker(p Publisher, opts ...BreakerOption) Publisher {
	bo := &BreakerOptions{
		name:        "notify",
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(bo)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    bo.name,
		Timeout: bo.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bo.maxFailures
		},
	})
	return breakerPublisher{publisher: p, cb: cb}
}

func (bp breakerPublisher) Publish(ctx context.Context, n Notification) error {
	_, err := bp.cb.Execute(func() (struct{}, error) {
		return struct{}{}, bp.publisher.Publish(ctx, n)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}
