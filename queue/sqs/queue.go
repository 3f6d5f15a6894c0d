// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/credentials/endpointcreds"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// API is the subset of the SQS client used by this package.
// It is satisfied by [*sqs.Client].
type API interface {
	ListQueues(context.Context, *sqs.ListQueuesInput, ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	GetQueueUrl(context.Context, *sqs.GetQueueUrlInput, ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(context.Context, *sqs.DeleteMessageInput, ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// delegatedSources are credential sources which obtain their identity from
// the environment the process runs in rather than from static keys.
var delegatedSources = []string{
	ec2rolecreds.ProviderName,
	endpointcreds.ProviderName,
	stscreds.ProviderName,
	stscreds.WebIdentityProviderName,
}

// VerifyCredentials ensures the listener runs with a usable identity: either
// an explicit account id is configured or the credentials were obtained from
// an instance role, container endpoint, assumed role or web identity.
func VerifyCredentials(ctx context.Context, provider aws.CredentialsProvider, accountID string) error {
	if accountID != "" {
		return nil
	}
	if provider == nil {
		return ConfigurationError{Reason: "no account id configured and no credentials available"}
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return ConfigurationError{Reason: "failed to retrieve aws credentials", Cause: err}
	}
	if slices.Contains(delegatedSources, creds.Source) {
		return nil
	}
	return ConfigurationError{
		Reason: fmt.Sprintf("no account id configured and credentials source %q is not a delegated role", creds.Source),
	}
}

// Queue is a resolved SQS queue.
type Queue struct {
	api  API
	name string
	url  string
}

// ResolveQueue finds the queue with exactly the given name and resolves its
// URL, optionally within another account.
func ResolveQueue(ctx context.Context, api API, name, accountID string) (*Queue, error) {
	listed, err := api.ListQueues(ctx, &sqs.ListQueuesInput{
		QueueNamePrefix: aws.String(name),
	})
	if err != nil {
		return nil, ConfigurationError{Reason: "failed to list queues", Cause: err}
	}

	found := slices.ContainsFunc(listed.QueueUrls, func(u string) bool {
		return queueNameFromURL(u) == name
	})
	if !found {
		return nil, ConfigurationError{Reason: fmt.Sprintf("queue %q does not exist", name)}
	}

	in := &sqs.GetQueueUrlInput{QueueName: aws.String(name)}
	if accountID != "" {
		in.QueueOwnerAWSAccountId = aws.String(accountID)
	}
	out, err := api.GetQueueUrl(ctx, in)
	if err != nil {
		return nil, ConfigurationError{Reason: fmt.Sprintf("failed to get url for queue %q", name), Cause: err}
	}

	return &Queue{
		api:  api,
		name: name,
		url:  aws.ToString(out.QueueUrl),
	}, nil
}

func queueNameFromURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Path == "" {
		return path.Base(s)
	}
	return path.Base(u.Path)
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// URL returns the queue URL.
func (q *Queue) URL() string { return q.url }

// FetchOptions control a single receive call.
type FetchOptions struct {
	AttributeNames        []string
	MessageAttributeNames []string
	WaitTimeSeconds       int32
	MaxMessages           int32
}

// Fetch long polls the queue for up to MaxMessages messages.
func (q *Queue) Fetch(ctx context.Context, opts FetchOptions) ([]Message, error) {
	attrNames := make([]sqstypes.MessageSystemAttributeName, len(opts.AttributeNames))
	for i, name := range opts.AttributeNames {
		attrNames[i] = sqstypes.MessageSystemAttributeName(name)
	}

	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.url),
		MessageSystemAttributeNames: attrNames,
		MessageAttributeNames:       opts.MessageAttributeNames,
		WaitTimeSeconds:             opts.WaitTimeSeconds,
		MaxNumberOfMessages:         opts.MaxMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs: failed to receive messages from %s: %w", q.name, err)
	}

	msgs := make([]Message, len(out.Messages))
	for i, m := range out.Messages {
		msgs[i] = messageFromSQS(m)
	}
	return msgs, nil
}

// Delete removes the message identified by receiptHandle from the queue.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs: failed to delete message from %s: %w", q.name, err)
	}
	return nil
}

// Acknowledge implements the [queue.Acknowledger] interface by deleting m.
func (q *Queue) Acknowledge(ctx context.Context, m Message) error {
	return q.Delete(ctx, m.ReceiptHandle)
}
