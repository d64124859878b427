package task

import (
	"errors"
	"sync"
)

// ErrQueueEmpty is returned by TryPop when there is nothing to take.
var ErrQueueEmpty = errors.New("task queue is empty")

// Queue is a concurrent min-priority queue of tasks.
//
// Tasks with equal priority come out in insertion order: every Push takes a
// fresh sequence number, so a re-queued task goes to the back of its tier.
type Queue struct {
	mu    sync.Mutex
	items entries
	seq   uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push inserts t according to its priority.
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	q.seq++
	q.items.push(entry{task: t, seq: q.seq})
	q.mu.Unlock()
}

// TryPop removes and returns the highest-priority task without blocking.
func (q *Queue) TryPop() (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Task{}, ErrQueueEmpty
	}
	return q.items.pop().task, nil
}

// Peek returns the task TryPop would return, leaving it queued.
func (q *Queue) Peek() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Task{}, false
	}
	return q.items[0].task, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush drops every queued task and reports how many were dropped.
func (q *Queue) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	for i := range q.items {
		q.items[i] = entry{}
	}
	q.items = q.items[:0]
	return n
}

type entry struct {
	task Task
	seq  uint64
}

// entries is a binary min-heap ordered by (priority, seq).
type entries []entry

func (h *entries) push(e entry) {
	*h = append(*h, e)
	h.up(len(*h) - 1)
}

func (h *entries) pop() entry {
	old := *h
	n := len(old) - 1
	old.swap(0, n)
	item := old[n]
	old[n] = entry{} // release the job closure
	*h = old[:n]
	h.down(0)
	return item
}

func (h entries) less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Less(h[j].task)
	}
	return h[i].seq < h[j].seq
}

func (h entries) swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h entries) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h entries) down(i int) {
	n := len(h)
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2 // right child
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}
