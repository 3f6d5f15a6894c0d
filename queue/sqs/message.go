// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is a single message received from a queue.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          []byte

	// Attributes are the system attributes set by SQS,
	// e.g. ApproximateReceiveCount.
	Attributes map[string]string

	// MessageAttributes are the application attributes set by the sender.
	// String and Number values are carried as strings, Binary values are dropped.
	MessageAttributes map[string]string
}

func messageFromSQS(m sqstypes.Message) Message {
	var attrs map[string]string
	if len(m.MessageAttributes) > 0 {
		attrs = make(map[string]string, len(m.MessageAttributes))
		for name, v := range m.MessageAttributes {
			if v.StringValue == nil {
				continue
			}
			attrs[name] = *v.StringValue
		}
	}

	return Message{
		ID:                aws.ToString(m.MessageId),
		ReceiptHandle:     aws.ToString(m.ReceiptHandle),
		Body:              []byte(aws.ToString(m.Body)),
		Attributes:        m.Attributes,
		MessageAttributes: attrs,
	}
}

// Delivery is a decoded [Message] as seen by a [Handler].
// Handlers must treat it as read only.
type Delivery struct {
	MessageID string

	// Payload is the decoded JSON body: a map[string]any, []any,
	// string, float64, bool or nil.
	Payload any

	Attributes        map[string]string
	MessageAttributes map[string]string
}

func decode(m Message) (Delivery, error) {
	var payload any
	err := json.Unmarshal(m.Body, &payload)
	if err != nil {
		return Delivery{}, DecodeError{MessageID: m.ID, Cause: err}
	}

	return Delivery{
		MessageID:         m.ID,
		Payload:           payload,
		Attributes:        m.Attributes,
		MessageAttributes: m.MessageAttributes,
	}, nil
}
