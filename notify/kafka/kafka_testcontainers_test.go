//go:build testcontainers

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/z5labs/sqslistener/config"
	"github.com/z5labs/sqslistener/notify"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image: "docker.io/apache/kafka-native:latest",
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.NetworkMode = "host"
		},
		User: "root",
		Env: map[string]string{
			"KAFKA_NODE_ID":                                  "1",
			"KAFKA_PROCESS_ROLES":                            "broker,controller",
			"KAFKA_CONTROLLER_QUORUM_VOTERS":                 "1@localhost:9093",
			"KAFKA_CONTROLLER_LISTENER_NAMES":                "CONTROLLER",
			"KAFKA_LISTENERS":                                "PLAINTEXT://0.0.0.0:9092,CONTROLLER://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":                     "PLAINTEXT://localhost:9092",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":           "PLAINTEXT:PLAINTEXT,CONTROLLER:PLAINTEXT",
			"KAFKA_INTER_BROKER_LISTENER_NAME":               "PLAINTEXT",
			"KAFKA_LOG_DIRS":                                 "/var/lib/kafka/data",
			"KAFKA_CLUSTER_ID":                               "WmV3pZkQR0O6n5j3x8j6bg==",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR":         "1",
			"KAFKA_TRANSACTION_STATE_LOG_REPLICATION_FACTOR": "1",
			"KAFKA_TRANSACTION_STATE_LOG_MIN_ISR":            "1",
			"KAFKA_GROUP_INITIAL_REBALANCE_DELAY_MS":         "0",
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE":                "false",
		},
		WaitingFor: wait.ForLog("Kafka Server started").WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		err := c.Terminate(context.Background())
		if err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	return []string{"localhost:9092"}
}

func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	require.NoError(t, err)
	defer client.Close()

	resp, err := kadm.NewClient(client).CreateTopics(context.Background(), 1, 1, nil, topic)
	require.NoError(t, err)
	for _, r := range resp {
		require.NoError(t, r.Err)
	}
}

func TestPublisher_Publish(t *testing.T) {
	brokers := startKafka(t)
	createTopic(t, brokers, "orders-dlq")

	t.Run("will produce a record readable by a consumer", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		p, err := NewPublisher(ctx, Config{
			Brokers: config.ReaderOf(brokers),
			Topic:   config.ReaderOf("orders-dlq"),
		})
		require.NoError(t, err)
		defer p.Close(ctx)

		err = p.Publish(ctx, notify.Notification{
			Subject:    "Failed SQS Message",
			Body:       []byte(`{"order":1}`),
			Attributes: map[string]string{"source": "web"},
		})
		require.NoError(t, err)

		consumer, err := kgo.NewClient(
			kgo.SeedBrokers(brokers...),
			kgo.ConsumeTopics("orders-dlq"),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		)
		require.NoError(t, err)
		defer consumer.Close()

		fetches := consumer.PollRecords(ctx, 1)
		require.NoError(t, fetches.Err())

		records := fetches.Records()
		require.Len(t, records, 1)
		require.Equal(t, []byte(`{"order":1}`), records[0].Value)
		require.Contains(t, records[0].Headers, kgo.RecordHeader{Key: SubjectHeader, Value: []byte("Failed SQS Message")})
		require.Contains(t, records[0].Headers, kgo.RecordHeader{Key: "source", Value: []byte("web")})
	})
}
