// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the builder fails", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			b := BuilderFunc[RuntimeFunc](func(ctx context.Context) (RuntimeFunc, error) {
				return nil, buildErr
			})

			err := Run[RuntimeFunc](context.Background(), b)
			require.ErrorIs(t, err, buildErr)
		})

		t.Run("if the builder panics", func(t *testing.T) {
			b := BuilderFunc[RuntimeFunc](func(ctx context.Context) (RuntimeFunc, error) {
				panic("missing queue name")
			})

			err := Run[RuntimeFunc](context.Background(), b)
			require.Error(t, err)
		})

		t.Run("if the runtime fails", func(t *testing.T) {
			runErr := errors.New("failed to run")
			b := BuilderFunc[RuntimeFunc](func(ctx context.Context) (RuntimeFunc, error) {
				return func(ctx context.Context) error {
					return runErr
				}, nil
			})

			err := Run[RuntimeFunc](context.Background(), b)
			require.ErrorIs(t, err, runErr)
		})
	})
}

func TestBind(t *testing.T) {
	t.Run("will not call the binder", func(t *testing.T) {
		t.Run("if the first builder fails", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			called := false

			b := Bind(
				BuilderFunc[int](func(ctx context.Context) (int, error) {
					return 0, buildErr
				}),
				func(n int) Builder[string] {
					called = true
					return BuilderFunc[string](func(ctx context.Context) (string, error) {
						return "", nil
					})
				},
			)

			_, err := b.Build(context.Background())
			require.ErrorIs(t, err, buildErr)
			require.False(t, called)
		})
	})
}

func TestWithHooks(t *testing.T) {
	t.Run("will run hooks in order after the runtime", func(t *testing.T) {
		var order []string
		b := WithHooks(func(ctx context.Context, h *HookRegistry) (RuntimeFunc, error) {
			h.OnPostRun(func(ctx context.Context) error {
				order = append(order, "close producer")
				return nil
			})
			h.OnPostRun(func(ctx context.Context) error {
				order = append(order, "flush metrics")
				return nil
			})
			return func(ctx context.Context) error {
				order = append(order, "listen")
				return nil
			}, nil
		})

		rt, err := b.Build(context.Background())
		require.NoError(t, err)
		require.NoError(t, rt.Run(context.Background()))
		require.Equal(t, []string{"listen", "close producer", "flush metrics"}, order)
	})

	t.Run("will join every error", func(t *testing.T) {
		t.Run("if the runtime and some hooks fail", func(t *testing.T) {
			runErr := errors.New("listener failed")
			hookErr := errors.New("failed to close producer")
			hookCalls := 0

			b := WithHooks(func(ctx context.Context, h *HookRegistry) (RuntimeFunc, error) {
				h.OnPostRun(func(ctx context.Context) error {
					hookCalls++
					return hookErr
				})
				h.OnPostRun(func(ctx context.Context) error {
					hookCalls++
					return nil
				})
				return func(ctx context.Context) error {
					return runErr
				}, nil
			})

			rt, err := b.Build(context.Background())
			require.NoError(t, err)

			err = rt.Run(context.Background())
			require.ErrorIs(t, err, runErr)
			require.ErrorIs(t, err, hookErr)
			require.Equal(t, 2, hookCalls)
		})
	})

	t.Run("will not build a runtime", func(t *testing.T) {
		t.Run("if the build function fails", func(t *testing.T) {
			buildErr := errors.New("queue not found")
			b := WithHooks(func(ctx context.Context, h *HookRegistry) (RuntimeFunc, error) {
				return nil, buildErr
			})

			_, err := b.Build(context.Background())
			require.ErrorIs(t, err, buildErr)
		})
	})
}
