package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/events"
	"ballot-backend/models"
)

type gatedPublisher struct {
	*events.Recorder
	started chan struct{}
	release chan struct{}
}

func (p *gatedPublisher) Publish(ctx context.Context, e events.Event) error {
	p.started <- struct{}{}
	<-p.release
	return p.Recorder.Publish(ctx, e)
}

func TestNotificationQueueDropsWhenFull(t *testing.T) {
	p := &gatedPublisher{
		Recorder: events.NewRecorder(),
		started:  make(chan struct{}, 8),
		release:  make(chan struct{}),
	}

	q := NewNotificationQueue(p, 1)

	var dropped int
	q.onDrop = func(events.Event) { dropped++ }

	ev := func(seq uint64) events.Event {
		return events.New(seq, models.Entry{Op: models.OpSubmitVote}, nil)
	}

	require.True(t, q.Enqueue(ev(1)))

	select {
	case <-p.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first event")
	}

	assert.True(t, q.Enqueue(ev(2)))
	assert.False(t, q.Enqueue(ev(3)))
	assert.Equal(t, 1, dropped)

	close(p.release)
	require.NoError(t, q.Close())

	got := p.Events()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Sequence)
	assert.Equal(t, uint64(2), got[1].Sequence)
	assert.True(t, p.Closed())

	assert.False(t, q.Enqueue(ev(4)))
	assert.NoError(t, q.Close())
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())

	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
