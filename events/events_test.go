package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/logging"
	"ballot-backend/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func resolvedEvent() Event {
	ref := models.BallotRef{Kind: models.KindCase, ID: 3}
	return New(7, models.Entry{Op: models.OpResolveCase, Ballot: &ref}, &models.Outcome{YesVotes: 1, NoVotes: 1})
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeVoteSubmitted, TypeOf(models.OpSubmitVote))
	assert.Equal(t, TypeCaseResolved, TypeOf(models.OpResolveCase))
	assert.Equal(t, TypeVoteRevealed, TypeOf(models.OpRevealVote))
	assert.Equal(t, TypeStateChanged, TypeOf(models.OpRegisterVoter))
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "case/3", resolvedEvent().Key())
	assert.Equal(t, "registry", New(1, models.Entry{Op: models.OpRegisterVoter}, nil).Key())
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	kp := &KafkaPublisher{writer: w}

	e := resolvedEvent()
	require.NoError(t, kp.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("case/3"), w.msgs[0].Key)
	assert.Equal(t, "type", w.msgs[0].Headers[0].Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, uint64(7), decoded.Sequence)
	require.NotNil(t, decoded.Outcome)
	assert.False(t, decoded.Outcome.Approved)

	w.err = errors.New("broker down")
	assert.Error(t, kp.Publish(context.Background(), e))

	require.NoError(t, kp.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "ballots")
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	kp, err := NewKafkaPublisher([]string{"localhost:9092"}, "ballots")
	require.NoError(t, err)
	require.NoError(t, kp.Close())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLogPublisher(logging.Setup(&buf, zerolog.InfoLevel, "json"))

	require.NoError(t, lp.Publish(context.Background(), resolvedEvent()))
	assert.Contains(t, buf.String(), `"event":"case_resolved"`)
	assert.Contains(t, buf.String(), `"module":"events"`)
	assert.Contains(t, buf.String(), `"approved":false`)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Publish(context.Background(), resolvedEvent()))
	require.NoError(t, r.Publish(context.Background(), New(8, models.Entry{Op: models.OpSubmitVote}, nil)))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(TypeVoteSubmitted), 1)

	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
}
