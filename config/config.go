// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides composable, lazily evaluated configuration values.
//
// Every configurable value in this module is expressed as a [Reader]. Readers
// can be sourced from environment variables, static values or raw bytes and
// then combined with [Default], [Or] and [Map] before being evaluated with
// [Read], [Must] or [MustOr].
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrValueNotSet is returned by [Read] when a [Reader] produced no value.
var ErrValueNotSet = errors.New("config: value not set")

// Value wraps a configuration value along with whether or not it was set.
// The zero value represents an unset value.
type Value[T any] struct {
	v   T
	set bool
}

// ValueOf returns a set [Value] containing v.
func ValueOf[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Value returns the underlying value and whether it was set.
func (v Value[T]) Value() (T, bool) {
	return v.v, v.set
}

// Reader reads a configuration value of type T.
type Reader[T any] interface {
	Read(context.Context) (Value[T], error)
}

// ReaderFunc is an adapter to allow the use of ordinary functions as [Reader]s.
type ReaderFunc[T any] func(context.Context) (Value[T], error)

// Read implements the [Reader] interface.
func (f ReaderFunc[T]) Read(ctx context.Context) (Value[T], error) {
	return f(ctx)
}

// EmptyReader returns a [Reader] which never has a value.
func EmptyReader[T any]() Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return Value[T]{}, nil
	})
}

// ReaderOf returns a [Reader] which always produces v.
func ReaderOf[T any](v T) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return ValueOf(v), nil
	})
}

// Env reads the environment variable with the given name.
// An undefined variable results in an unset [Value], while a defined
// but empty variable is considered set.
func Env(name string) Reader[string] {
	return ReaderFunc[string](func(ctx context.Context) (Value[string], error) {
		s, ok := os.LookupEnv(name)
		if !ok {
			return Value[string]{}, nil
		}
		return ValueOf(s), nil
	})
}

// Default returns def whenever r does not produce a value.
func Default[T any](def T, r Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		if r == nil {
			return ValueOf(def), nil
		}
		v, err := r.Read(ctx)
		if err != nil {
			return Value[T]{}, err
		}
		if _, set := v.Value(); !set {
			return ValueOf(def), nil
		}
		return v, nil
	})
}

// Or returns the first set value from the given readers.
func Or[T any](rs ...Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		for _, r := range rs {
			if r == nil {
				continue
			}
			v, err := r.Read(ctx)
			if err != nil {
				return Value[T]{}, err
			}
			if _, set := v.Value(); set {
				return v, nil
			}
		}
		return Value[T]{}, nil
	})
}

// Map transforms the value read from r with f. Unset values are not mapped.
func Map[A, B any](r Reader[A], f func(context.Context, A) (B, error)) Reader[B] {
	return ReaderFunc[B](func(ctx context.Context) (Value[B], error) {
		if r == nil {
			return Value[B]{}, nil
		}
		va, err := r.Read(ctx)
		if err != nil {
			return Value[B]{}, err
		}
		a, set := va.Value()
		if !set {
			return Value[B]{}, nil
		}
		b, err := f(ctx, a)
		if err != nil {
			return Value[B]{}, err
		}
		return ValueOf(b), nil
	})
}

// Read evaluates r and returns its value. [ErrValueNotSet] is returned
// if r is nil or does not produce a value.
func Read[T any](ctx context.Context, r Reader[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrValueNotSet
	}
	v, err := r.Read(ctx)
	if err != nil {
		return zero, err
	}
	t, set := v.Value()
	if !set {
		return zero, ErrValueNotSet
	}
	return t, nil
}

// Must is like [Read] but panics on any error.
func Must[T any](ctx context.Context, r Reader[T]) T {
	t, err := Read(ctx, r)
	if err != nil {
		panic(fmt.Errorf("config: failed to read value: %w", err))
	}
	return t
}

// MustOr returns def if r is nil or unset and panics if r fails to read.
func MustOr[T any](ctx context.Context, def T, r Reader[T]) T {
	return Must(ctx, Default(def, r))
}
