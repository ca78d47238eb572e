package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// IDQueue is an in-memory queue of property-id batches feeding the bulk
// scoring workers.
type IDQueue struct {
	items    chan []string
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]string) error
}

// NewIDQueue creates a new id queue with the specified buffer size.
func NewIDQueue(bufferSize int, logger *logrus.Logger) *IDQueue {
	return &IDQueue{
		items:    make(chan []string, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]string) error, 0),
	}
}

// Push adds a batch of property ids to the queue. The send is non-blocking;
// a full queue returns ErrQueueFull instead of stalling the producer.
func (q *IDQueue) Push(ids []string) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- ids:
		q.logger.WithField("batch_size", len(ids)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch.
func (q *IDQueue) Subscribe(handler func([]string) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing batches in the queue on a background goroutine.
func (q *IDQueue) Start() {
	go q.Run()
}

// Run consumes batches until the queue is closed, dispatching each one to
// every subscribed handler. Blocks; callers that track their own workers
// call Run directly instead of Start.
func (q *IDQueue) Run() {
	for {
		select {
		case <-q.done:
			return
		case batch, ok := <-q.items:
			if !ok {
				return
			}
			q.dispatch(batch)
		}
	}
}

func (q *IDQueue) dispatch(batch []string) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new batches from being added.
func (q *IDQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue.
func (q *IDQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *IDQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
