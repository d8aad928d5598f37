// Package async provides the futures and the bounded worker pool used to keep
// storage and platform I/O off event-handling goroutines.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual result of an asynchronous computation. A Future completes
// exactly once; every waiter observes the same value and error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns an incomplete future together with the function that completes it.
// Calls to complete after the first are ignored.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.complete
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f, complete := NewFuture[T]()
	complete(v, nil)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f, complete := NewFuture[T]()
	var zero T
	complete(zero, err)
	return f
}

// Go runs fn on a new goroutine. A panic in fn completes the future with an error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, complete := NewFuture[T]()
	go run(fn, complete)
	return f
}

func run[T any](fn func() (T, error), complete func(T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			complete(zero, fmt.Errorf("async task panicked: %v", r))
		}
	}()
	v, err := fn()
	complete(v, err)
}

// Done is closed once the future has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the value and error of a completed future and false if it is still pending.
func (f *Future[T]) Result() (T, error, bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Then maps the value of f once it completes. Errors from f skip fn and propagate.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out, complete := NewFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero U
			complete(zero, f.err)
			return
		}
		run(func() (U, error) { return fn(f.val) }, complete)
	}()
	return out
}

// Catch replaces a failure of f with the value returned by fn.
func Catch[T any](f *Future[T], fn func(error) T) *Future[T] {
	out, complete := NewFuture[T]()
	go func() {
		<-f.done
		if f.err != nil {
			complete(fn(f.err), nil)
			return
		}
		complete(f.val, nil)
	}()
	return out
}

// OnComplete calls fn with the outcome of f on a separate goroutine.
func OnComplete[T any](f *Future[T], fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.val, f.err)
	}()
}
