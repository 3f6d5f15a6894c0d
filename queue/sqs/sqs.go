// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sqs implements a retrying, dead-lettering listener for AWS SQS.
//
// A [Listener] long polls a queue and hands each JSON message to a [Handler].
// Consecutive failures are counted per message id by a [FailureTracker] and
// once a message has failed more than MaxRetries times in a row it is
// abandoned: published to a dead-letter topic, when configured, and deleted.
//
// [Build] wires one or more listeners into an application using the
// default AWS configuration chain:
//
//	func main() {
//	    queue.Run(context.Background(), sqs.Build(handler, sqs.ConfigFromEnv()))
//	}
package sqs

import (
	"context"

	"github.com/z5labs/sqslistener/app"
	"github.com/z5labs/sqslistener/health"
	"github.com/z5labs/sqslistener/notify"
	"github.com/z5labs/sqslistener/notify/sns"
	"github.com/z5labs/sqslistener/queue"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
)

// BuildOptions configure [Build].
type BuildOptions struct {
	awsConfig       func(context.Context) (aws.Config, error)
	sqsClient       func(aws.Config) API
	snsClient       func(aws.Config) sns.API
	listenerOptions []ListenerOption
	health          *health.Group
	breaker         []notify.BreakerOption
}

// BuildOption sets a value on [BuildOptions].
type BuildOption func(*BuildOptions)

// AWSConfig overrides how the AWS configuration is loaded.
// By default [awsconfig.LoadDefaultConfig] is used.
func AWSConfig(f func(context.Context) (aws.Config, error)) BuildOption {
	return func(bo *BuildOptions) {
		bo.awsConfig = f
	}
}

// SQSClient overrides how the SQS client is created from the loaded
// AWS configuration, e.g. to target a local endpoint.
func SQSClient(f func(aws.Config) API) BuildOption {
	return func(bo *BuildOptions) {
		bo.sqsClient = f
	}
}

// SNSClient overrides how the SNS client used for dead-letter topics is
// created from the loaded AWS configuration.
func SNSClient(f func(aws.Config) sns.API) BuildOption {
	return func(bo *BuildOptions) {
		bo.snsClient = f
	}
}

// WithListenerOptions passes options to every built [Listener].
func WithListenerOptions(opts ...ListenerOption) BuildOption {
	return func(bo *BuildOptions) {
		bo.listenerOptions = append(bo.listenerOptions, opts...)
	}
}

// WithHealth registers every built [Listener] as a member of g,
// keyed by its queue name.
func WithHealth(g *health.Group) BuildOption {
	return func(bo *BuildOptions) {
		bo.health = g
	}
}

// WithDeadLetterBreaker tunes the circuit breaker placed in front of the
// SNS dead-letter publisher.
func WithDeadLetterBreaker(opts ...notify.BreakerOption) BuildOption {
	return func(bo *BuildOptions) {
		bo.breaker = append(bo.breaker, opts...)
	}
}

// Build returns an [app.Builder] running one [Listener] per config, each
// dispatching to the same handler. Listeners whose config names a
// dead-letter topic publish abandoned messages to it through SNS.
func Build(handler Handler, cfg Config, more ...Config) app.Builder[queue.Runtime] {
	return BuildWithOptions(handler, append([]Config{cfg}, more...))
}

// BuildWithOptions is like [Build] but accepts [BuildOption]s.
func BuildWithOptions(handler Handler, cfgs []Config, opts ...BuildOption) app.Builder[queue.Runtime] {
	return app.BuilderFunc[queue.Runtime](func(ctx context.Context) (queue.Runtime, error) {
		if handler == nil {
			return queue.Runtime{}, ConfigurationError{Reason: "handler is required"}
		}

		bo := &BuildOptions{
			awsConfig: func(ctx context.Context) (aws.Config, error) {
				return awsconfig.LoadDefaultConfig(ctx)
			},
			sqsClient: func(cfg aws.Config) API {
				return sqs.NewFromConfig(cfg)
			},
			snsClient: func(cfg aws.Config) sns.API {
				return awssns.NewFromConfig(cfg)
			},
		}
		for _, opt := range opts {
			opt(bo)
		}

		awsCfg, err := bo.awsConfig(ctx)
		if err != nil {
			return queue.Runtime{}, ConfigurationError{Reason: "failed to load aws config", Cause: err}
		}

		sqsClient := bo.sqsClient(awsCfg)
		snsClient := bo.snsClient(awsCfg)

		runtimes := make([]queue.QueueRuntime, 0, len(cfgs))
		for _, cfg := range cfgs {
			s, err := cfg.read(ctx)
			if err != nil {
				return queue.Runtime{}, err
			}

			err = VerifyCredentials(ctx, awsCfg.Credentials, s.accountID)
			if err != nil {
				return queue.Runtime{}, err
			}

			q, err := ResolveQueue(ctx, sqsClient, s.queueName, s.accountID)
			if err != nil {
				return queue.Runtime{}, err
			}

			lopts := append([]ListenerOption{}, bo.listenerOptions...)
			if s.deadLetterTopic != "" {
				p := notify.WithCircuitBreaker(
					sns.NewPublisher(snsClient, s.deadLetterTopic),
					append([]notify.BreakerOption{notify.BreakerName(s.queueName)}, bo.breaker...)...,
				)
				lopts = append(lopts, DeadLetterPublisher(p))
			}
			if bo.health != nil {
				lopts = append(lopts, HealthReporter(bo.health.Member(s.queueName)))
			}

			l, err := newListener(q, handler, s, lopts...)
			if err != nil {
				return queue.Runtime{}, err
			}
			runtimes = append(runtimes, l)
		}

		return queue.Build(runtimes...).Build(ctx)
	})
}
