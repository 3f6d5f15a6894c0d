// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package kafka publishes notifications to a Kafka topic.
//
// It is an alternative dead-letter sink for deployments which collect
// failed messages in Kafka rather than SNS.
package kafka

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/z5labs/sqslistener"
	"github.com/z5labs/sqslistener/config"
	"github.com/z5labs/sqslistener/notify"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"github.com/twmb/franz-go/plugin/kslog"
	"go.opentelemetry.io/otel"
)

// SubjectHeader is the record header carrying [notify.Notification.Subject].
const SubjectHeader = "subject"

// Config describes the producer.
type Config struct {
	Brokers config.Reader[[]string]
	Topic   config.Reader[string]
}

// ConfigFromEnv reads the comma separated KAFKA_BROKERS and KAFKA_TOPIC.
func ConfigFromEnv(overrides ...func(*Config)) Config {
	cfg := Config{
		Brokers: config.StringsFromString(config.Env("KAFKA_BROKERS")),
		Topic:   config.Env("KAFKA_TOPIC"),
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg
}

// Publisher produces every notification as a single record.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher creates a producer client. Callers must [Publisher.Close] it.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	brokers, err := config.Read(ctx, cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("kafka: brokers: %w", err)
	}
	topic, err := config.Read(ctx, cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka: topic: %w", err)
	}

	client, err := kgo.NewClient(
		kgo.WithLogger(kslog.New(sqslistener.Logger("github.com/twmb/franz-go/pkg/kgo"))),
		kgo.WithHooks(
			kotel.NewTracer(
				kotel.TracerProvider(otel.GetTracerProvider()),
				kotel.TracerPropagator(otel.GetTextMapPropagator()),
			),
			kotel.NewMeter(
				kotel.MeterProvider(otel.GetMeterProvider()),
				kotel.WithMergedConnectsMeter(),
			),
		),
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}

	return &Publisher{client: client, topic: topic}, nil
}

// Publish implements the [notify.Publisher] interface. It blocks until the
// record has been acknowledged by the brokers.
func (p *Publisher) Publish(ctx context.Context, n notify.Notification) error {
	err := p.client.ProduceSync(ctx, record(p.topic, n)).FirstErr()
	if err != nil {
		return fmt.Errorf("kafka: failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Publisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

func record(topic string, n notify.Notification) *kgo.Record {
	r := &kgo.Record{
		Topic: topic,
		Value: n.Body,
	}
	if n.Subject != "" {
		r.Headers = append(r.Headers, kgo.RecordHeader{Key: SubjectHeader, Value: []byte(n.Subject)})
	}
	for _, name := range slices.Sorted(maps.Keys(n.Attributes)) {
		r.Headers = append(r.Headers, kgo.RecordHeader{Key: name, Value: []byte(n.Attributes[name])})
	}
	return r
}
