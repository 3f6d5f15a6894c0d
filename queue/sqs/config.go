// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/z5labs/sqslistener/config"
)

const (
	DefaultWaitTime     = 20 * time.Second
	DefaultMaxRetries   = 3
	DefaultMaxMessages  = 10
	DefaultErrorSubject = "Failed SQS Message"

	maxWaitTime    = 20 * time.Second
	maxMaxMessages = 10
)

// Config describes a single [Listener].
type Config struct {
	QueueName             config.Reader[string]
	AccountID             config.Reader[string]
	DeadLetterTopic       config.Reader[string]
	WaitTime              config.Reader[time.Duration]
	PollInterval          config.Reader[time.Duration]
	MaxRetries            config.Reader[int]
	AttributeNames        config.Reader[[]string]
	MessageAttributeNames config.Reader[[]string]
	MaxMessages           config.Reader[int]
	ProcessTimeout        config.Reader[time.Duration]
}

// ConfigOption overrides a field of [Config].
type ConfigOption func(*Config)

// QueueName sets the name of the queue to listen on.
func QueueName(name config.Reader[string]) ConfigOption {
	return func(c *Config) { c.QueueName = name }
}

// QueueNameFromEnv reads SQS_QUEUE_NAME.
func QueueNameFromEnv() config.Reader[string] {
	return config.Env("SQS_QUEUE_NAME")
}

// AccountID sets the AWS account which owns the queue.
func AccountID(id config.Reader[string]) ConfigOption {
	return func(c *Config) { c.AccountID = id }
}

// AccountIDFromEnv reads AWS_ACCOUNT_ID.
func AccountIDFromEnv() config.Reader[string] {
	return config.Env("AWS_ACCOUNT_ID")
}

// DeadLetterTopic sets the SNS topic ARN abandoned messages are published to.
func DeadLetterTopic(arn config.Reader[string]) ConfigOption {
	return func(c *Config) { c.DeadLetterTopic = arn }
}

// DeadLetterTopicFromEnv reads SQS_ERROR_TOPIC_ARN.
func DeadLetterTopicFromEnv() config.Reader[string] {
	return config.Env("SQS_ERROR_TOPIC_ARN")
}

// WaitTime sets the long poll duration of each fetch.
func WaitTime(d config.Reader[time.Duration]) ConfigOption {
	return func(c *Config) { c.WaitTime = d }
}

// WaitTimeFromEnv reads SQS_WAIT_TIME, e.g. "20s".
func WaitTimeFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("SQS_WAIT_TIME"))
}

// PollInterval sets the pause after a fetch which returned no messages.
func PollInterval(d config.Reader[time.Duration]) ConfigOption {
	return func(c *Config) { c.PollInterval = d }
}

// PollIntervalFromEnv reads SQS_POLL_INTERVAL.
func PollIntervalFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("SQS_POLL_INTERVAL"))
}

// MaxRetries sets how many failures a message may have before it is abandoned.
func MaxRetries(n config.Reader[int]) ConfigOption {
	return func(c *Config) { c.MaxRetries = n }
}

// MaxRetriesFromEnv reads SQS_MAX_RETRIES.
func MaxRetriesFromEnv() config.Reader[int] {
	return config.IntFromString(config.Env("SQS_MAX_RETRIES"))
}

// AttributeNames sets the system attributes requested on every fetch.
func AttributeNames(names config.Reader[[]string]) ConfigOption {
	return func(c *Config) { c.AttributeNames = names }
}

// AttributeNamesFromEnv reads the comma separated SQS_ATTRIBUTE_NAMES.
func AttributeNamesFromEnv() config.Reader[[]string] {
	return config.StringsFromString(config.Env("SQS_ATTRIBUTE_NAMES"))
}

// MessageAttributeNames sets the message attributes requested on every fetch.
func MessageAttributeNames(names config.Reader[[]string]) ConfigOption {
	return func(c *Config) { c.MessageAttributeNames = names }
}

// MessageAttributeNamesFromEnv reads the comma separated SQS_MESSAGE_ATTRIBUTE_NAMES.
func MessageAttributeNamesFromEnv() config.Reader[[]string] {
	return config.StringsFromString(config.Env("SQS_MESSAGE_ATTRIBUTE_NAMES"))
}

// MaxMessages sets the maximum batch size of a fetch.
func MaxMessages(n config.Reader[int]) ConfigOption {
	return func(c *Config) { c.MaxMessages = n }
}

// MaxMessagesFromEnv reads SQS_MAX_MESSAGES.
func MaxMessagesFromEnv() config.Reader[int] {
	return config.IntFromString(config.Env("SQS_MAX_MESSAGES"))
}

// ProcessTimeout bounds each Process call. Zero disables the timeout.
func ProcessTimeout(d config.Reader[time.Duration]) ConfigOption {
	return func(c *Config) { c.ProcessTimeout = d }
}

// ProcessTimeoutFromEnv reads SQS_PROCESS_TIMEOUT.
func ProcessTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("SQS_PROCESS_TIMEOUT"))
}

// ConfigFromEnv returns a [Config] sourced from SQS_* environment variables.
func ConfigFromEnv(opts ...ConfigOption) Config {
	cfg := Config{
		QueueName:             QueueNameFromEnv(),
		AccountID:             AccountIDFromEnv(),
		DeadLetterTopic:       DeadLetterTopicFromEnv(),
		WaitTime:              WaitTimeFromEnv(),
		PollInterval:          PollIntervalFromEnv(),
		MaxRetries:            MaxRetriesFromEnv(),
		AttributeNames:        AttributeNamesFromEnv(),
		MessageAttributeNames: MessageAttributeNamesFromEnv(),
		MaxMessages:           MaxMessagesFromEnv(),
		ProcessTimeout:        ProcessTimeoutFromEnv(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// settings is a read and validated [Config].
type settings struct {
	queueName             string
	accountID             string
	deadLetterTopic       string
	waitTime              time.Duration
	pollInterval          time.Duration
	maxRetries            int
	attributeNames        []string
	messageAttributeNames []string
	maxMessages           int
	processTimeout        time.Duration
}

func (cfg Config) read(ctx context.Context) (s settings, err error) {
	s.queueName, err = config.Read(ctx, cfg.QueueName)
	if errors.Is(err, config.ErrValueNotSet) || (err == nil && s.queueName == "") {
		return s, ConfigurationError{Reason: "queue name is required"}
	}
	if err != nil {
		return s, ConfigurationError{Reason: "failed to read queue name", Cause: err}
	}

	fields := []struct {
		name string
		read func() error
	}{
		{"account id", func() (err error) {
			s.accountID, err = readOr(ctx, "", cfg.AccountID)
			return
		}},
		{"dead-letter topic", func() (err error) {
			s.deadLetterTopic, err = readOr(ctx, "", cfg.DeadLetterTopic)
			return
		}},
		{"wait time", func() (err error) {
			s.waitTime, err = readOr(ctx, DefaultWaitTime, cfg.WaitTime)
			return
		}},
		{"poll interval", func() (err error) {
			s.pollInterval, err = readOr(ctx, 0, cfg.PollInterval)
			return
		}},
		{"max retries", func() (err error) {
			s.maxRetries, err = readOr(ctx, DefaultMaxRetries, cfg.MaxRetries)
			return
		}},
		{"attribute names", func() (err error) {
			s.attributeNames, err = readOr(ctx, []string{"All"}, cfg.AttributeNames)
			return
		}},
		{"message attribute names", func() (err error) {
			s.messageAttributeNames, err = readOr(ctx, []string{}, cfg.MessageAttributeNames)
			return
		}},
		{"max messages", func() (err error) {
			s.maxMessages, err = readOr(ctx, DefaultMaxMessages, cfg.MaxMessages)
			return
		}},
		{"process timeout", func() (err error) {
			s.processTimeout, err = readOr(ctx, 0, cfg.ProcessTimeout)
			return
		}},
	}
	for _, f := range fields {
		err = f.read()
		if err != nil {
			return s, ConfigurationError{Reason: "failed to read " + f.name, Cause: err}
		}
	}

	return s, s.validate()
}

func readOr[T any](ctx context.Context, def T, r config.Reader[T]) (T, error) {
	return config.Read(ctx, config.Default(def, r))
}

func (s settings) validate() error {
	switch {
	case s.waitTime < 0 || s.waitTime > maxWaitTime:
		return ConfigurationError{Reason: fmt.Sprintf("wait time must be between 0s and %s: got %s", maxWaitTime, s.waitTime)}
	case s.waitTime%time.Second != 0:
		return ConfigurationError{Reason: fmt.Sprintf("wait time must be a whole number of seconds: got %s", s.waitTime)}
	case s.pollInterval < 0:
		return ConfigurationError{Reason: fmt.Sprintf("poll interval must not be negative: got %s", s.pollInterval)}
	case s.maxRetries < 0:
		return ConfigurationError{Reason: fmt.Sprintf("max retries must not be negative: got %d", s.maxRetries)}
	case s.maxMessages < 1 || s.maxMessages > maxMaxMessages:
		return ConfigurationError{Reason: fmt.Sprintf("max messages must be between 1 and %d: got %d", maxMaxMessages, s.maxMessages)}
	case s.processTimeout < 0:
		return ConfigurationError{Reason: fmt.Sprintf("process timeout must not be negative: got %s", s.processTimeout)}
	}
	return nil
}

func (s settings) fetchOptions() FetchOptions {
	return FetchOptions{
		AttributeNames:        s.attributeNames,
		MessageAttributeNames: s.messageAttributeNames,
		WaitTimeSeconds:       int32(s.waitTime / time.Second),
		MaxMessages:           int32(s.maxMessages),
	}
}
