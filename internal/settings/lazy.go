package settings

import "sync"

// Lazy is a value computed on first use. The result, including an error, is
// cached and returned by every later call.
type Lazy[T any] struct {
	mu       sync.Mutex
	fn       func() (T, error)
	val      T
	err      error
	resolved bool
}

// NewLazy wraps fn without calling it
func NewLazy[T any](fn func() (T, error)) *Lazy[T] {
	return &Lazy[T]{fn: fn}
}

// Get resolves the value once
func (l *Lazy[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.resolved {
		l.val, l.err = l.fn()
		l.resolved = true
	}
	return l.val, l.err
}

// Resolved reports whether Get has run
func (l *Lazy[T]) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}
