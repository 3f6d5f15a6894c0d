// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sns publishes notifications to an AWS SNS topic.
package sns

import (
	"context"
	"fmt"

	"github.com/z5labs/sqslistener/notify"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// API is the subset of the SNS client used by [Publisher].
// It is satisfied by [*sns.Client].
type API interface {
	Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher publishes to a single SNS topic.
type Publisher struct {
	api      API
	topicArn string
}

// NewPublisher returns a [Publisher] for the given topic ARN.
func NewPublisher(api API, topicArn string) *Publisher {
	return &Publisher{
		api:      api,
		topicArn: topicArn,
	}
}

// Publish implements the [notify.Publisher] interface. Attributes are sent as
// String message attributes and an empty subject is omitted.
func (p *Publisher) Publish(ctx context.Context, n notify.Notification) error {
	in := &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Message:  aws.String(string(n.Body)),
	}
	if n.Subject != "" {
		in.Subject = aws.String(n.Subject)
	}
	if len(n.Attributes) > 0 {
		in.MessageAttributes = make(map[string]snstypes.MessageAttributeValue, len(n.Attributes))
		for name, value := range n.Attributes {
			in.MessageAttributes[name] = snstypes.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(value),
			}
		}
	}

	_, err := p.api.Publish(ctx, in)
	if err != nil {
		return fmt.Errorf("sns: failed to publish to %s: %w", p.topicArn, err)
	}
	return nil
}
