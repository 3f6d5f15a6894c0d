// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailureTracker(t *testing.T) {
	t.Run("will return zero", func(t *testing.T) {
		t.Run("if the id has never failed", func(t *testing.T) {
			ft := NewFailureTracker()
			require.Zero(t, ft.Count("1"))
			require.Zero(t, ft.Len())
		})
	})

	t.Run("will count consecutive failures per id", func(t *testing.T) {
		ft := NewFailureTracker()

		require.Equal(t, 1, ft.Increment("1"))
		require.Equal(t, 2, ft.Increment("1"))
		require.Equal(t, 1, ft.Increment("2"))

		require.Equal(t, 2, ft.Count("1"))
		require.Equal(t, 1, ft.Count("2"))
		require.Equal(t, 2, ft.Len())
	})

	t.Run("will forget an id once cleared", func(t *testing.T) {
		ft := NewFailureTracker()
		ft.Increment("1")
		ft.Increment("1")

		ft.Clear("1")
		ft.Clear("unknown")

		require.Zero(t, ft.Count("1"))
		require.Zero(t, ft.Len())
		require.Equal(t, 1, ft.Increment("1"))
	})
}
