//go:build testcontainers

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"testing"
	"time"

	"github.com/z5labs/sqslistener/config"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "orders",
				"POSTGRES_PASSWORD": "orders",
				"POSTGRES_DB":       "orders",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)

	return "postgres://orders:orders@" + endpoint + "/orders?sslmode=disable"
}

func TestLedger_Record(t *testing.T) {
	url := setupPostgresContainer(t)

	ctx := context.Background()
	ledger, err := NewLedger(ctx, config.ReaderOf(url))
	require.NoError(t, err)
	defer ledger.Close()

	t.Run("will report an order as new only once", func(t *testing.T) {
		o := Order{ID: "o-1", Customer: "c-1", Total: 10}

		fresh, err := ledger.Record(ctx, "m-1", o)
		require.NoError(t, err)
		require.True(t, fresh)

		fresh, err = ledger.Record(ctx, "m-2", o)
		require.NoError(t, err)
		require.False(t, fresh)
	})
}
