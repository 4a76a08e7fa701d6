package queue

import (
	"context"
	"fmt"
	"sync"
)

// InlineQueue runs registered jobs synchronously in the publishing goroutine.
// It is the QueueService used when Redis is not configured.
type InlineQueue struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewInlineQueue() *InlineQueue {
	return &InlineQueue{jobs: make(map[string]Job)}
}

// RegisterJob registers a job handler.
func (q *InlineQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.Type()] = job
}

// PublishMessage dispatches directly to the registered job.
func (q *InlineQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	job, ok := q.jobs[msgType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	return job.Handle(ctx, payload)
}
