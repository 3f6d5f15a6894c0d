// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"

	listenerapp "github.com/z5labs/sqslistener/example/sqs-listener/app"
	"github.com/z5labs/sqslistener/otel"
	"github.com/z5labs/sqslistener/queue"
)

func main() {
	_ = queue.Run(context.Background(), otel.Build(otel.SDKFromEnv(), listenerapp.BuildApp()))
}
