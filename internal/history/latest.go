package history

import "sync"

// Latest keeps, per key, the value of the most recently started computation
// that has completed. A computation that finishes after a newer one has
// already been accepted is discarded. A key is forgotten once none of its
// computations are in flight.
type Latest[T any] struct {
	mu    sync.Mutex
	slots map[string]*slot[T]
}

type slot[T any] struct {
	started  uint64
	inflight int
	done     *accepted[T]
}

type accepted[T any] struct {
	seq   uint64
	value T
}

// NewLatest returns an empty gate.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{slots: make(map[string]*slot[T])}
}

// Begin registers a new computation for key and returns its ticket. Every
// ticket must end with Complete or Abandon.
func (l *Latest[T]) Begin(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot[T]{}
		l.slots[key] = s
	}
	s.started++
	s.inflight++
	return s.started
}

// Complete offers value for the computation identified by seq. It returns the
// value now current for key and whether the offered value was accepted.
func (l *Latest[T]) Complete(key string, seq uint64, value T) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		return value, true
	}
	defer l.release(key, s)
	if s.done != nil && s.done.seq > seq {
		return s.done.value, false
	}
	s.done = &accepted[T]{seq: seq, value: value}
	return value, true
}

// Abandon ends a computation that produced no value.
func (l *Latest[T]) Abandon(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		l.release(key, s)
	}
}

// release must be called with l.mu held.
func (l *Latest[T]) release(key string, s *slot[T]) {
	s.inflight--
	if s.inflight <= 0 {
		delete(l.slots, key)
	}
}

// Current returns the last accepted value for key while computations for it
// are still in flight.
func (l *Latest[T]) Current(key string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok && s.done != nil {
		return s.done.value, true
	}
	var zero T
	return zero, false
}

// Len reports how many keys have computations in flight.
func (l *Latest[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
