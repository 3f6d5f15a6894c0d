// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"testing"

	"github.com/z5labs/sqslistener/config"
	"github.com/z5labs/sqslistener/notify"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestNewPublisher(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if no brokers are configured", func(t *testing.T) {
			_, err := NewPublisher(context.Background(), ConfigFromEnv())
			require.ErrorIs(t, err, config.ErrValueNotSet)
		})

		t.Run("if no topic is configured", func(t *testing.T) {
			t.Setenv("KAFKA_BROKERS", "localhost:9092")

			_, err := NewPublisher(context.Background(), ConfigFromEnv())
			require.ErrorIs(t, err, config.ErrValueNotSet)
		})
	})

	t.Run("will create a publisher", func(t *testing.T) {
		t.Run("if brokers and topic are configured", func(t *testing.T) {
			t.Setenv("KAFKA_BROKERS", "localhost:9092, localhost:9093")
			t.Setenv("KAFKA_TOPIC", "orders-dlq")

			p, err := NewPublisher(context.Background(), ConfigFromEnv())
			require.NoError(t, err)
			require.Equal(t, "orders-dlq", p.topic)
			p.client.Close()
		})
	})
}

func TestRecord(t *testing.T) {
	t.Run("will carry the subject and attributes as headers", func(t *testing.T) {
		r := record("orders-dlq", notify.Notification{
			Subject: "Failed SQS Message",
			Body:    []byte(`{"order":1}`),
			Attributes: map[string]string{
				"source":   "web",
				"priority": "high",
			},
		})

		require.Equal(t, "orders-dlq", r.Topic)
		require.Equal(t, []byte(`{"order":1}`), r.Value)
		require.Equal(t, []kgo.RecordHeader{
			{Key: SubjectHeader, Value: []byte("Failed SQS Message")},
			{Key: "priority", Value: []byte("high")},
			{Key: "source", Value: []byte("web")},
		}, r.Headers)
	})

	t.Run("will omit an empty subject", func(t *testing.T) {
		r := record("orders-dlq", notify.Notification{Body: []byte(`1`)})
		require.Empty(t, r.Headers)
	})
}
