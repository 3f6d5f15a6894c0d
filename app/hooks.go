// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
)

// HookFunc runs once the wrapped runtime has returned.
type HookFunc func(context.Context) error

// HookRegistry collects cleanup hooks while a runtime is being built,
// e.g. closing a Kafka producer that a dead-letter publisher was built on.
type HookRegistry struct {
	hooks []HookFunc
}

// OnPostRun registers a hook. Hooks run in registration order.
func (r *HookRegistry) OnPostRun(hook HookFunc) {
	r.hooks = append(r.hooks, hook)
}

// HookRuntime runs an inner [Runtime] followed by every registered hook.
type HookRuntime struct {
	inner Runtime
	hooks []HookFunc
}

// Run implements the [Runtime] interface.
//
// Every hook runs even if the inner runtime or an earlier hook failed.
// All errors are joined together.
func (rt HookRuntime) Run(ctx context.Context) error {
	runErr := rt.inner.Run(ctx)

	var hookErrs error
	for _, hook := range rt.hooks {
		err := hook(ctx)
		if err != nil {
			hookErrs = errors.Join(hookErrs, err)
		}
	}

	return errors.Join(runErr, hookErrs)
}

// WithHooks returns a [Builder] whose build function may register cleanup
// hooks for the resources it creates.
//
//	builder := app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (app.Runtime, error) {
//	    client, err := kgo.NewClient(...)
//	    if err != nil {
//	        return nil, err
//	    }
//	    h.OnPostRun(func(ctx context.Context) error {
//	        client.Close()
//	        return nil
//	    })
//	    return newListener(client), nil
//	})
func WithHooks[T Runtime](f func(context.Context, *HookRegistry) (T, error)) Builder[HookRuntime] {
	return BuilderFunc[HookRuntime](func(ctx context.Context) (HookRuntime, error) {
		registry := &HookRegistry{}

		inner, err := f(ctx, registry)
		if err != nil {
			return HookRuntime{}, err
		}

		return HookRuntime{
			inner: inner,
			hooks: registry.hooks,
		}, nil
	})
}
