// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"fmt"

	"github.com/z5labs/sqslistener/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createOrdersTable = `CREATE TABLE IF NOT EXISTS processed_orders (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL,
	customer     TEXT NOT NULL,
	total        DOUBLE PRECISION NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Ledger remembers which orders have already been processed so that
// redelivered messages are not announced twice.
type Ledger struct {
	pool *pgxpool.Pool
}

// DatabaseURLFromEnv reads POSTGRES_URL.
func DatabaseURLFromEnv() config.Reader[string] {
	return config.Env("POSTGRES_URL")
}

// NewLedger connects to Postgres and creates the ledger table if needed.
func NewLedger(ctx context.Context, url config.Reader[string]) (*Ledger, error) {
	connString, err := config.Read(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ledger: database url: %w", err)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to create pool: %w", err)
	}

	_, err = pool.Exec(ctx, createOrdersTable)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: failed to create table: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

// Record stores the order and reports whether it had not been seen before.
func (l *Ledger) Record(ctx context.Context, messageID string, o Order) (bool, error) {
	tag, err := l.pool.Exec(
		ctx,
		`INSERT INTO processed_orders (id, message_id, customer, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, messageID, o.Customer, o.Total,
	)
	if err != nil {
		return false, fmt.Errorf("ledger: failed to record order %s: %w", o.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close releases every pooled connection.
func (l *Ledger) Close() {
	l.pool.Close()
}
