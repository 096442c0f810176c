package service

import (
	"context"
	"sync"
	"time"

	"ballot-backend/events"
	"ballot-backend/logging"
)

const defaultPublishTimeout = 5 * time.Second

// NotificationQueue hands events to a publisher on a single worker, so they
// leave in journal order. Enqueue never blocks; a full queue drops the event.
type NotificationQueue struct {
	*logging.Logging
	publisher events.Publisher
	ch        chan events.Event
	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	onDrop    func(events.Event)
	timeout   time.Duration
}

func NewNotificationQueue(publisher events.Publisher, queueSize int) *NotificationQueue {
	if queueSize < 1 {
		queueSize = 1
	}

	q := &NotificationQueue{
		Logging:   logging.NewLogging(logging.Module("notification-queue")),
		publisher: publisher,
		ch:        make(chan events.Event, queueSize),
		timeout:   defaultPublishTimeout,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

func (q *NotificationQueue) Enqueue(e events.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.Log().Warn().Uint64("sequence", e.Sequence).Msg("notification queue is closed, event dropped")
		return false
	}

	select {
	case q.ch <- e:
		return true
	default:
		q.Log().Warn().
			Uint64("sequence", e.Sequence).
			Str("event", string(e.Type)).
			Msg("notification queue is full, event dropped")
		if q.onDrop != nil {
			q.onDrop(e)
		}
		return false
	}
}

func (q *NotificationQueue) worker() {
	defer q.wg.Done()

	for e := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.publisher.Publish(ctx, e)
		cancel()

		if err != nil {
			q.Log().Error().Err(err).
				Uint64("sequence", e.Sequence).
				Str("event", string(e.Type)).
				Msg("failed to publish notification")
		}
	}
}

// Close drains the queue and closes the publisher.
func (q *NotificationQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()
	return q.publisher.Close()
}
