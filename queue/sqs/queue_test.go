// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/require"
)

// fakeSQS is an in-memory queue with a zero visibility timeout:
// every message which has not been deleted is returned by every receive.
type fakeSQS struct {
	mu sync.Mutex

	queueURLs   []string
	listErr     error
	getURLErr   error
	getURLInput *sqs.GetQueueUrlInput

	messages    []sqstypes.Message
	receiveErrs []error
	receives    int
	lastReceive *sqs.ReceiveMessageInput

	deleteErr error
	deleted   []string

	// stopAfter cancels the listener on the first receive after this many
	// receives have been served.
	stopAfter int
	cancel    context.CancelFunc
}

func (f *fakeSQS) ListQueues(ctx context.Context, in *sqs.ListQueuesInput, _ ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	var urls []string
	for _, u := range f.queueURLs {
		if queueNameHasPrefix(u, aws.ToString(in.QueueNamePrefix)) {
			urls = append(urls, u)
		}
	}
	return &sqs.ListQueuesOutput{QueueUrls: urls}, nil
}

func queueNameHasPrefix(u, prefix string) bool {
	name := queueNameFromURL(u)
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

func (f *fakeSQS) GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	f.getURLInput = in
	if f.getURLErr != nil {
		return nil, f.getURLErr
	}
	return &sqs.GetQueueUrlOutput{
		QueueUrl: aws.String("https://sqs.us-east-1.amazonaws.com/123456789012/" + aws.ToString(in.QueueName)),
	}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopAfter > 0 && f.receives >= f.stopAfter {
		f.cancel()
		return &sqs.ReceiveMessageOutput{}, nil
	}
	f.receives++
	f.lastReceive = in

	if len(f.receiveErrs) > 0 {
		err := f.receiveErrs[0]
		f.receiveErrs = f.receiveErrs[1:]
		return nil, err
	}

	n := min(int(in.MaxNumberOfMessages), len(f.messages))
	return &sqs.ReceiveMessageOutput{Messages: slices.Clone(f.messages[:n])}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return nil, f.deleteErr
	}

	handle := aws.ToString(in.ReceiptHandle)
	f.deleted = append(f.deleted, handle)
	f.messages = slices.DeleteFunc(f.messages, func(m sqstypes.Message) bool {
		return aws.ToString(m.ReceiptHandle) == handle
	})
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func sqsMessage(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("receipt-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func staticCreds(source string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "AKID",
			SecretAccessKey: "SECRET",
			Source:          source,
		}, nil
	})
}

func TestVerifyCredentials(t *testing.T) {
	t.Run("will succeed", func(t *testing.T) {
		t.Run("if an account id is configured", func(t *testing.T) {
			err := VerifyCredentials(context.Background(), nil, "123456789012")
			require.NoError(t, err)
		})

		sources := []string{ec2rolecreds.ProviderName, stscreds.ProviderName, stscreds.WebIdentityProviderName}
		for _, source := range sources {
			t.Run(fmt.Sprintf("if the credentials come from %s", source), func(t *testing.T) {
				err := VerifyCredentials(context.Background(), staticCreds(source), "")
				require.NoError(t, err)
			})
		}
	})

	t.Run("will return a ConfigurationError", func(t *testing.T) {
		t.Run("if static credentials are used without an account id", func(t *testing.T) {
			provider := credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")

			err := VerifyCredentials(context.Background(), provider, "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
		})

		t.Run("if there is no credentials provider", func(t *testing.T) {
			err := VerifyCredentials(context.Background(), nil, "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
		})

		t.Run("if the credentials can not be retrieved", func(t *testing.T) {
			retrieveErr := errors.New("no ec2 imds role found")
			provider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{}, retrieveErr
			})

			err := VerifyCredentials(context.Background(), provider, "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
			require.ErrorIs(t, err, retrieveErr)
		})
	})
}

func TestResolveQueue(t *testing.T) {
	t.Run("will resolve the queue url", func(t *testing.T) {
		t.Run("if a queue with exactly the given name exists", func(t *testing.T) {
			api := &fakeSQS{
				queueURLs: []string{
					"https://sqs.us-east-1.amazonaws.com/123456789012/orders-dlq",
					"https://sqs.us-east-1.amazonaws.com/123456789012/orders",
				},
			}

			q, err := ResolveQueue(context.Background(), api, "orders", "")
			require.NoError(t, err)
			require.Equal(t, "orders", q.Name())
			require.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/orders", q.URL())
			require.Nil(t, api.getURLInput.QueueOwnerAWSAccountId)
		})

		t.Run("within the configured account", func(t *testing.T) {
			api := &fakeSQS{
				queueURLs: []string{"https://sqs.us-east-1.amazonaws.com/210987654321/orders"},
			}

			_, err := ResolveQueue(context.Background(), api, "orders", "210987654321")
			require.NoError(t, err)
			require.Equal(t, "210987654321", aws.ToString(api.getURLInput.QueueOwnerAWSAccountId))
		})
	})

	t.Run("will return a ConfigurationError", func(t *testing.T) {
		t.Run("if only queues sharing the prefix exist", func(t *testing.T) {
			api := &fakeSQS{
				queueURLs: []string{"https://sqs.us-east-1.amazonaws.com/123456789012/orders-dlq"},
			}

			_, err := ResolveQueue(context.Background(), api, "orders", "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
			require.Nil(t, api.getURLInput)
		})

		t.Run("if listing queues fails", func(t *testing.T) {
			listErr := errors.New("access denied")
			api := &fakeSQS{listErr: listErr}

			_, err := ResolveQueue(context.Background(), api, "orders", "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
			require.ErrorIs(t, err, listErr)
		})

		t.Run("if the queue url can not be resolved", func(t *testing.T) {
			getErr := errors.New("queue does not exist")
			api := &fakeSQS{
				queueURLs: []string{"https://sqs.us-east-1.amazonaws.com/123456789012/orders"},
				getURLErr: getErr,
			}

			_, err := ResolveQueue(context.Background(), api, "orders", "")

			var cerr ConfigurationError
			require.ErrorAs(t, err, &cerr)
			require.ErrorIs(t, err, getErr)
		})
	})
}

func TestQueue_Fetch(t *testing.T) {
	t.Run("will request the configured attributes", func(t *testing.T) {
		api := &fakeSQS{}
		q := &Queue{api: api, name: "orders", url: "https://example.com/orders"}

		_, err := q.Fetch(context.Background(), FetchOptions{
			AttributeNames:        []string{"All"},
			MessageAttributeNames: []string{"trace_id"},
			WaitTimeSeconds:       20,
			MaxMessages:           5,
		})
		require.NoError(t, err)

		in := api.lastReceive
		require.Equal(t, "https://example.com/orders", aws.ToString(in.QueueUrl))
		require.Equal(t, []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameAll}, in.MessageSystemAttributeNames)
		require.Equal(t, []string{"trace_id"}, in.MessageAttributeNames)
		require.Equal(t, int32(20), in.WaitTimeSeconds)
		require.Equal(t, int32(5), in.MaxNumberOfMessages)
	})

	t.Run("will convert message attributes to strings", func(t *testing.T) {
		m := sqsMessage("1", `{}`)
		m.MessageAttributes = map[string]sqstypes.MessageAttributeValue{
			"source":   {DataType: aws.String("String"), StringValue: aws.String("orders")},
			"priority": {DataType: aws.String("Number"), StringValue: aws.String("5")},
			"blob":     {DataType: aws.String("Binary"), BinaryValue: []byte{1, 2}},
		}
		api := &fakeSQS{messages: []sqstypes.Message{m}}
		q := &Queue{api: api, name: "orders"}

		msgs, err := q.Fetch(context.Background(), FetchOptions{MaxMessages: 10})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, "1", msgs[0].ID)
		require.Equal(t, "receipt-1", msgs[0].ReceiptHandle)
		require.Equal(t, []byte(`{}`), msgs[0].Body)
		require.Equal(t, "1", msgs[0].Attributes["ApproximateReceiveCount"])
		require.Equal(t, map[string]string{"source": "orders", "priority": "5"}, msgs[0].MessageAttributes)
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if receiving fails", func(t *testing.T) {
			recvErr := errors.New("throttled")
			api := &fakeSQS{receiveErrs: []error{recvErr}}
			q := &Queue{api: api, name: "orders"}

			_, err := q.Fetch(context.Background(), FetchOptions{MaxMessages: 1})
			require.ErrorIs(t, err, recvErr)
		})
	})
}

func TestQueue_Acknowledge(t *testing.T) {
	t.Run("will delete the message by receipt handle", func(t *testing.T) {
		api := &fakeSQS{messages: []sqstypes.Message{sqsMessage("1", `{}`)}}
		q := &Queue{api: api, name: "orders"}

		err := q.Acknowledge(context.Background(), Message{ID: "1", ReceiptHandle: "receipt-1"})
		require.NoError(t, err)
		require.Equal(t, []string{"receipt-1"}, api.deleted)
		require.Zero(t, api.remaining())
	})
}
