package document

import (
	"context"
	"errors"
)

var errNoResolver = errors.New("deferred value has no resolver")

// Deferred holds a value that is either known up front or produced by a resolver on first use.
// A successful resolution is memoized; failures are not, so a later call may retry.
type Deferred[T any] struct {
	value    T
	resolved bool
	resolve  func(context.Context) (T, error)
}

// Known wraps an already available value.
func Known[T any](value T) *Deferred[T] {
	return &Deferred[T]{value: value, resolved: true}
}

// Defer wraps a resolver that runs on the first Get.
func Defer[T any](resolve func(context.Context) (T, error)) *Deferred[T] {
	return &Deferred[T]{resolve: resolve}
}

func (d *Deferred[T]) Get(ctx context.Context) (T, error) {
	if d.resolved {
		return d.value, nil
	}
	if d.resolve == nil {
		var zero T
		return zero, errNoResolver
	}
	value, err := d.resolve(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	d.Bind(value)
	return value, nil
}

// Peek returns the value without resolving it.
func (d *Deferred[T]) Peek() (T, bool) {
	return d.value, d.resolved
}

// Bind supplies the value directly, skipping the resolver.
func (d *Deferred[T]) Bind(value T) {
	d.value = value
	d.resolved = true
	d.resolve = nil
}
