package pqueue

import "container/heap"

// Queue is a priority queue that pops the highest priority first and, among
// equal priorities, the earliest pushed element first.
// It is not safe for concurrent use; callers guard it with their own lock.
type Queue[T any] struct {
	h   entries[T]
	seq uint64
}

type entry[T any] struct {
	priority int
	seq      uint64
	value    T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push inserts v with the given priority and assigns it the next sequence number.
func (q *Queue[T]) Push(priority int, v T) {
	q.seq++
	heap.Push(&q.h, entry[T]{priority: priority, seq: q.seq, value: v})
}

// Pop removes and returns the head of the queue. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if len(q.h) == 0 {
		return v, false
	}
	e := heap.Pop(&q.h).(entry[T])
	return e.value, true
}

// IsEmpty reports whether the queue holds no elements.
func (q *Queue[T]) IsEmpty() bool { return len(q.h) == 0 }

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return len(q.h) }

// Drain removes every element and returns them in pop order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, len(q.h))
	for len(q.h) > 0 {
		out = append(out, heap.Pop(&q.h).(entry[T]).value)
	}
	return out
}

// entries implements heap.Interface ordered by (priority desc, seq asc).
type entries[T any] []entry[T]

func (e entries[T]) Len() int { return len(e) }

func (e entries[T]) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority > e[j].priority
	}
	return e[i].seq < e[j].seq
}

func (e entries[T]) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries[T]) Push(x any) { *e = append(*e, x.(entry[T])) }

func (e *entries[T]) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	// release the reference held by the backing array
	old[n-1] = entry[T]{}
	*e = old[:n-1]
	return it
}
