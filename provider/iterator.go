package provider

import (
	"context"
	"sync"
)

// Iterator gives pull-based access to values produced over time.
// Next returns (zero, false, nil) once exhausted. Close releases whatever
// the iterator holds and may be called more than once.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// SliceIterator iterates over an in-memory slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// FromSlice returns an Iterator over items.
func FromSlice[T any](items ...T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

// Next returns the next item, honoring cancellation.
func (s *SliceIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if s.pos >= len(s.items) {
		return zero, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// Close is a no-op.
func (s *SliceIterator[T]) Close() error { return nil }

// FuncIterator adapts a pair of functions into an Iterator.
type FuncIterator[T any] struct {
	next      func(ctx context.Context) (T, bool, error)
	close     func() error
	closeOnce sync.Once
	closeErr  error
}

// IteratorFunc returns an Iterator backed by next. closeFn may be nil.
func IteratorFunc[T any](next func(ctx context.Context) (T, bool, error), closeFn func() error) *FuncIterator[T] {
	return &FuncIterator[T]{next: next, close: closeFn}
}

// Next delegates to the wrapped function.
func (f *FuncIterator[T]) Next(ctx context.Context) (T, bool, error) {
	return f.next(ctx)
}

// Close runs the close function once.
func (f *FuncIterator[T]) Close() error {
	f.closeOnce.Do(func() {
		if f.close != nil {
			f.closeErr = f.close()
		}
	})
	return f.closeErr
}

// MapIterator converts each value of inner with fn.
func MapIterator[T, U any](inner Iterator[T], fn func(T) (U, error)) Iterator[U] {
	return IteratorFunc(func(ctx context.Context) (U, bool, error) {
		var zero U
		v, ok, err := inner.Next(ctx)
		if err != nil || !ok {
			return zero, ok, err
		}
		out, err := fn(v)
		if err != nil {
			return zero, false, err
		}
		return out, true, nil
	}, inner.Close)
}

// Collect drains it into a slice and closes it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
