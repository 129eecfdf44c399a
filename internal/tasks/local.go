package tasks

import (
	"context"
	"errors"
	"sync"

	"muxlti/internal/logger"
)

var ErrQueueClosed = errors.New("task queue is closed")

// LocalQueue - очередь в памяти процесса с пулом воркеров.
// Задачи, не выполненные до остановки процесса, теряются.
type LocalQueue struct {
	registry *Registry
	messages chan Message
	workers  int
	log      *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewLocalQueue(registry *Registry, workers, buffer int, log *logger.Logger) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	return &LocalQueue{
		registry: registry,
		messages: make(chan Message, buffer),
		workers:  workers,
		log:      log.With("component", "LocalQueue"),
	}
}

func (q *LocalQueue) Dispatch(ctx context.Context, name string, payload interface{}) error {
	msg, err := NewMessage(name, payload)
	if err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start запускает воркеров. Они работают, пока очередь не закрыта через Close.
func (q *LocalQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
}

func (q *LocalQueue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for msg := range q.messages {
		if err := q.registry.Run(ctx, msg); err != nil {
			q.log.Error("task failed", "worker", id, "task", msg.Name, "error", err)
			continue
		}
		q.log.Debug("task completed", "worker", id, "task", msg.Name)
	}
}

// Close перестает принимать задачи и ждет, пока воркеры разберут очередь.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.messages)
	q.mu.Unlock()

	q.wg.Wait()
}
