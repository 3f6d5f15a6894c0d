// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// GroupRuntime runs several [Runtime]s side by side, e.g. the
// listeners and the health endpoint of a single process.
type GroupRuntime []Runtime

// Group combines rts into a [GroupRuntime].
func Group(rts ...Runtime) GroupRuntime {
	return GroupRuntime(rts)
}

// Run implements the [Runtime] interface.
//
// The first runtime to fail cancels the rest. A runtime returning nil
// does not stop the others.
func (g GroupRuntime) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, rt := range g {
		p.Go(rt.Run)
	}
	return p.Wait()
}
