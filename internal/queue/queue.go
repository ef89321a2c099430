// Package queue provides the event buffer between the reconciliation engine
// and the session recorder's flush loop.
package queue

import "sync"

// Buffer is a mutex-guarded append-only event buffer with drain semantics.
// Writers append from inside the engine's critical section, so Append must
// never block on anything slower than the mutex; the flush loop takes
// everything accumulated so far in a single swap.
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewBuffer creates an empty buffer.
func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Append adds events to the buffer.
func (b *Buffer[T]) Append(items ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Len reports the number of buffered events.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Drain returns all buffered events in append order and leaves the buffer
// empty. The returned slice is owned by the caller; subsequent appends go to
// fresh storage.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}
