// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

// FailureTracker counts consecutive processing failures per message id.
//
// An entry exists only while a message has failed at least once and has not
// yet been deleted. It is owned by a single [Listener] and is not safe for
// concurrent use. Counts are lost on restart.
type FailureTracker struct {
	counts map[string]int
}

// NewFailureTracker returns an empty [FailureTracker].
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{counts: make(map[string]int)}
}

// Count returns the number of recorded failures for id, or 0.
func (t *FailureTracker) Count(id string) int {
	return t.counts[id]
}

// Increment records another failure for id and returns the new count.
func (t *FailureTracker) Increment(id string) int {
	t.counts[id]++
	return t.counts[id]
}

// Clear forgets id. Clearing an unknown id is a no-op.
func (t *FailureTracker) Clear(id string) {
	delete(t.counts, id)
}

// Len returns the number of tracked ids.
func (t *FailureTracker) Len() int {
	return len(t.counts)
}
