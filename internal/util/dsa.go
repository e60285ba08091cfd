package util

import "sync"

const QUEUE_MIN_CAP = 0x10

func mod(a int, b int) int {
	return ((a % b) + b) % b
}

// FIFO ring-buffer queue. Grows by doubling when full, never shrinks.
// Not safe for concurrent use, see Mailbox.
type Queue[T any] struct {
	data []T
	head int // next slot to write to
	cnt  int
}

func CreateQueue[T any](size int) Queue[T] {
	return Queue[T]{
		head: 0,
		cnt:  0,
		data: make([]T, max(size, 1)),
	}
}

func (q *Queue[T]) Cnt() int {
	return q.cnt
}

func (q *Queue[T]) Cap() int {
	return len(q.data)
}

func (q *Queue[T]) grow() {
	data := make([]T, len(q.data)*2)
	for i := range q.cnt {
		data[i] = q.data[mod(q.head-q.cnt+i, len(q.data))]
	}
	q.data = data
	q.head = q.cnt
}

func (q *Queue[T]) Push(val T) {
	if q.cnt == len(q.data) {
		q.grow()
	}
	q.data[q.head] = val
	q.head = mod(q.head+1, len(q.data))
	q.cnt++
}

// will panic if empty.
func (q *Queue[T]) Pop() T {
	if q.cnt == 0 {
		panic("queue underflow")
	}
	var zero T
	i := mod(q.head-q.cnt, len(q.data))
	val := q.data[i]
	q.data[i] = zero // don't pin popped values
	q.cnt--
	return val
}

// Mailbox is an unbounded multi-producer FIFO. Push never blocks, consumers
// wait on Notify() and then TryPop until empty.
//
// The notify channel has capacity 1, so a burst of pushes coalesces into a
// single wakeup. A consumer that pops and leaves items behind re-arms it so
// another consumer can pick up the rest.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  Queue[T]
	notify chan struct{}
	done   chan struct{}
	closed bool
}

func CreateMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		queue:  CreateQueue[T](QUEUE_MIN_CAP),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *Mailbox[T]) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Returns false if the mailbox is closed, val is not enqueued in that case.
func (m *Mailbox[T]) Push(val T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue.Push(val)
	m.mu.Unlock()
	m.signal()
	return true
}

func (m *Mailbox[T]) TryPop() (T, bool) {
	m.mu.Lock()
	if m.queue.Cnt() == 0 {
		m.mu.Unlock()
		var zero T
		return zero, false
	}
	val := m.queue.Pop()
	more := m.queue.Cnt() > 0
	m.mu.Unlock()
	if more {
		m.signal()
	}
	return val, true
}

func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Cnt()
}

func (m *Mailbox[T]) Notify() <-chan struct{} {
	return m.notify
}

// Closed is closed once Close has been called, so every waiting consumer
// wakes, not just the one that wins the notify token.
func (m *Mailbox[T]) Closed() <-chan struct{} {
	return m.done
}

// Close stops further pushes. Items already queued can still be popped.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// True once closed and drained.
func (m *Mailbox[T]) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed && m.queue.Cnt() == 0
}
