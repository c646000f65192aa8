// Package toast holds transient user notifications until a renderer picks
// them up.
package toast

import "sync"

// Kind is the notification variant.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindDestructive Kind = "destructive"
)

// Notification is one transient message shown to the visitor.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Kind: KindSuccess}
}

func Destructive(title, description string) Notification {
	return Notification{Title: title, Description: description, Kind: KindDestructive}
}

// DefaultLimit bounds a queue nobody drains.
const DefaultLimit = 16

// Queue is a bounded FIFO of pending notifications. When full, the oldest
// entry is dropped. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	limit   int
	pending []Notification
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Queue{limit: limit}
}

// Notify enqueues n. It never blocks and never fails.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.limit {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, n)
}

// Drain returns pending notifications in arrival order and clears the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
