// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/z5labs/sqslistener"
	"github.com/z5labs/sqslistener/notify"
	"github.com/z5labs/sqslistener/queue/sqs"
)

// Order is the message body published by the checkout service.
type Order struct {
	ID       string  `json:"id"`
	Customer string  `json:"customer"`
	Total    float64 `json:"total"`
}

// ErrMissingOrderID is returned for orders which can never succeed.
var ErrMissingOrderID = errors.New("order is missing an id")

type archiver interface {
	PutJSON(ctx context.Context, bucket, key string, v any) (string, error)
}

type recorder interface {
	Record(ctx context.Context, messageID string, o Order) (bool, error)
}

// OrderHandler archives every order and announces it as processed.
type OrderHandler struct {
	log     *slog.Logger
	bucket  string
	archive archiver
	ledger  recorder
	events  notify.Publisher
}

// OrderHandlerOption sets an optional collaborator on an [OrderHandler].
type OrderHandlerOption func(*OrderHandler)

// Archive stores every order as JSON in bucket.
func Archive(bucket string, a archiver) OrderHandlerOption {
	return func(h *OrderHandler) {
		h.bucket = bucket
		h.archive = a
	}
}

// Deduplicate skips announcing orders which r has already recorded.
func Deduplicate(r recorder) OrderHandlerOption {
	return func(h *OrderHandler) {
		h.ledger = r
	}
}

// Announce publishes an OrderProcessed event for every new order.
func Announce(p notify.Publisher) OrderHandlerOption {
	return func(h *OrderHandler) {
		h.events = p
	}
}

// NewOrderHandler returns an [OrderHandler] which, without options,
// only validates and logs orders.
func NewOrderHandler(opts ...OrderHandlerOption) *OrderHandler {
	h := &OrderHandler{
		log: sqslistener.Logger("github.com/z5labs/sqslistener/example/sqs-listener/app"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process implements the [sqs.Handler] interface.
func (h *OrderHandler) Process(ctx context.Context, d sqs.Delivery) error {
	order, err := orderFromPayload(d.Payload)
	if err != nil {
		return err
	}

	if h.archive != nil {
		_, err = h.archive.PutJSON(ctx, h.bucket, "orders/"+order.ID+".json", order)
		if err != nil {
			return fmt.Errorf("failed to archive order %s: %w", order.ID, err)
		}
	}

	if h.ledger != nil {
		fresh, err := h.ledger.Record(ctx, d.MessageID, order)
		if err != nil {
			return err
		}
		if !fresh {
			h.log.InfoContext(ctx, "order already processed", slog.String("order_id", order.ID))
			return nil
		}
	}

	if h.events != nil {
		_, err = notify.PublishEvent(ctx, h.events, notify.Event{
			Type:       "OrderProcessed",
			ActivityID: d.MessageAttributes["ActivityID"],
			Subject:    "Order Processed",
			Payload:    order,
		})
		if err != nil {
			return fmt.Errorf("failed to announce order %s: %w", order.ID, err)
		}
	}

	h.log.InfoContext(ctx, "processed order", slog.String("order_id", order.ID), slog.Float64("total", order.Total))
	return nil
}

// OnError implements the [sqs.Handler] interface.
func (h *OrderHandler) OnError(ctx context.Context, d sqs.Delivery, err error) {
	h.log.WarnContext(ctx, "order processing failed", slog.String("message_id", d.MessageID), slog.Any("error", err))
}

// OnAbandoned implements the [sqs.Handler] interface.
func (h *OrderHandler) OnAbandoned(ctx context.Context, d sqs.Delivery, err error) {
	h.log.ErrorContext(ctx, "giving up on order", slog.String("message_id", d.MessageID), slog.Any("error", err))
}

func orderFromPayload(payload any) (Order, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Order{}, err
	}

	var order Order
	err = json.Unmarshal(b, &order)
	if err != nil {
		return Order{}, fmt.Errorf("unexpected order shape: %w", err)
	}
	if order.ID == "" {
		return Order{}, ErrMissingOrderID
	}
	return order, nil
}
