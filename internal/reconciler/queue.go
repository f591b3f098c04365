package reconciler

import (
	"sync"

	"github.com/vitebski/schema-memory/pkg/models"
)

// ApplyQueue is an ordered, append-only collection of pending statements for one run.
//
// Push is safe to call from several goroutines; each producer's statements keep
// their relative order, interleaving between producers follows push completion.
type ApplyQueue struct {
	mu         sync.Mutex
	statements []models.PendingStatement
}

// NewApplyQueue creates an empty apply queue
func NewApplyQueue() *ApplyQueue {
	return &ApplyQueue{}
}

// Push appends statements to the back of the queue
func (q *ApplyQueue) Push(statements ...models.PendingStatement) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.statements = append(q.statements, statements...)
}

// Drain returns every queued statement in order and empties the queue
func (q *ApplyQueue) Drain() []models.PendingStatement {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.statements
	q.statements = nil
	return drained
}

// Len returns the number of queued statements
func (q *ApplyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.statements)
}
