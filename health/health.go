// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether listeners are able to reach their queues.
package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Monitor represents anything which can report its current state of health.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// MonitorFunc is an adapter to allow the use of ordinary functions as [Monitor]s.
type MonitorFunc func(context.Context) (bool, error)

// Healthy implements the [Monitor] interface.
func (f MonitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Reporter is updated by whatever is being monitored.
type Reporter interface {
	MarkHealthy()
	MarkUnhealthy()
}

// Binary is a [Monitor] and [Reporter] with two states.
// It is safe for concurrent use. The zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy changes the state to unhealthy.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy changes the state to healthy.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements the [Monitor] interface.
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// Group tracks one [Binary] per named member and is only healthy
// once every member is. A group without members is healthy.
//
// Each listener reports through its own member so a failing queue
// can not be masked by a healthy one.
type Group struct {
	mu      sync.Mutex
	members map[string]*Binary
}

// Member returns the [Binary] registered under name, creating an
// unhealthy one on first use.
func (g *Group) Member(name string) *Binary {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.members == nil {
		g.members = make(map[string]*Binary)
	}
	b, ok := g.members[name]
	if !ok {
		b = new(Binary)
		g.members[name] = b
	}
	return b
}

// Unhealthy returns the sorted names of every unhealthy member.
func (g *Group) Unhealthy(ctx context.Context) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var names []string
	for _, name := range slices.Sorted(maps.Keys(g.members)) {
		healthy, _ := g.members[name].Healthy(ctx)
		if !healthy {
			names = append(names, name)
		}
	}
	return names
}

// Healthy implements the [Monitor] interface.
func (g *Group) Healthy(ctx context.Context) (bool, error) {
	return len(g.Unhealthy(ctx)) == 0, nil
}

// AndMonitor follows logical AND semantics and fails fast on the
// first unhealthy result or error.
type AndMonitor []Monitor

// And combines ms into an [AndMonitor].
func And(ms ...Monitor) AndMonitor {
	return AndMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AndMonitor) Healthy(ctx context.Context) (bool, error) {
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if !healthy || err != nil {
			return healthy, err
		}
	}
	return true, nil
}

// OrMonitor follows logical OR semantics. Every error encountered
// before a healthy result is joined with [errors.Join].
type OrMonitor []Monitor

// Or combines ms into an [OrMonitor].
func Or(ms ...Monitor) OrMonitor {
	return OrMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (om OrMonitor) Healthy(ctx context.Context) (bool, error) {
	var errs []error
	for _, m := range om {
		healthy, err := m.Healthy(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if healthy {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
