// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires an order listener together with its health endpoint.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/z5labs/sqslistener/app"
	"github.com/z5labs/sqslistener/blob"
	"github.com/z5labs/sqslistener/config"
	"github.com/z5labs/sqslistener/health"
	"github.com/z5labs/sqslistener/http"
	"github.com/z5labs/sqslistener/notify"
	"github.com/z5labs/sqslistener/notify/kafka"
	"github.com/z5labs/sqslistener/queue/sqs"
)

const shutdownTimeout = 10 * time.Second

// closeAfterRun registers f to release a resource once the listener has
// stopped. The run context is cancelled by then so f gets its own deadline.
func closeAfterRun(hooks *app.HookRegistry, f func(context.Context) error) {
	hooks.OnPostRun(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return f(ctx)
	})
}

// BuildApp builds the listener configured by SQS_QUEUE_NAME and friends.
//
// Every collaborator of the order handler is optional: orders are
// archived to MinIO when MINIO_ENDPOINT is set, deduplicated in Postgres
// when POSTGRES_URL is set and announced on Kafka when KAFKA_BROKERS is set.
func BuildApp() app.Builder[app.HookRuntime] {
	return app.WithHooks(func(ctx context.Context, hooks *app.HookRegistry) (app.GroupRuntime, error) {
		var opts []OrderHandlerOption

		store, err := blob.NewStore(ctx, blob.ConfigFromEnv())
		switch {
		case errors.Is(err, config.ErrValueNotSet):
		case err != nil:
			return nil, err
		default:
			bucket := config.MustOr(ctx, "orders", config.Env("ORDERS_BUCKET"))
			err = store.EnsureBucket(ctx, bucket)
			if err != nil {
				return nil, err
			}
			opts = append(opts, Archive(bucket, store))
		}

		ledger, err := NewLedger(ctx, DatabaseURLFromEnv())
		switch {
		case errors.Is(err, config.ErrValueNotSet):
		case err != nil:
			return nil, err
		default:
			closeAfterRun(hooks, func(context.Context) error {
				ledger.Close()
				return nil
			})
			opts = append(opts, Deduplicate(ledger))
		}

		producer, err := kafka.NewPublisher(ctx, kafka.ConfigFromEnv())
		switch {
		case errors.Is(err, config.ErrValueNotSet):
		case err != nil:
			return nil, err
		default:
			closeAfterRun(hooks, producer.Close)
			opts = append(opts, Announce(notify.WithCircuitBreaker(producer, notify.BreakerName("order-events"))))
		}

		var listeners health.Group
		queues, err := sqs.BuildWithOptions(
			NewOrderHandler(opts...),
			[]sqs.Config{sqs.ConfigFromEnv()},
			sqs.WithHealth(&listeners),
		).Build(ctx)
		if err != nil {
			return nil, err
		}

		srv, err := http.BuildHealth(
			http.ServerFromEnv(http.ListenerFromEnv()),
			nil,
			&listeners,
		).Build(ctx)
		if err != nil {
			return nil, err
		}

		return app.Group(queues, srv), nil
	})
}
