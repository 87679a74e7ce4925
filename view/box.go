package view

import "sync"

// box guards a value with a read-write lock. Callers must not call back
// into the view from f.
type box[T any] struct {
	t    T
	lock sync.RWMutex
}

func (b *box[T]) Read(f func(*T)) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	f(&b.t)
}

func (b *box[T]) Write(f func(*T)) {
	b.lock.Lock()
	defer b.lock.Unlock()
	f(&b.t)
}
