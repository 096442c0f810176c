package events

import (
	"context"

	"github.com/google/uuid"

	"ballot-backend/models"
)

type Type string

const (
	TypeVoteSubmitted Type = "vote_submitted"
	TypeVoteCast      Type = "vote_cast"
	TypeVoteRevealed  Type = "vote_revealed"
	TypeCaseResolved  Type = "case_resolved"
	TypeStateChanged  Type = "state_changed"
)

// Event is the notification for one accepted command.
type Event struct {
	ID       uuid.UUID       `json:"id"`
	Type     Type            `json:"type"`
	Sequence uint64          `json:"sequence"`
	Entry    models.Entry    `json:"entry"`
	Outcome  *models.Outcome `json:"outcome,omitempty"`
}

func TypeOf(op models.Op) Type {
	switch op {
	case models.OpSubmitVote:
		return TypeVoteSubmitted
	case models.OpCastVote:
		return TypeVoteCast
	case models.OpRevealVote:
		return TypeVoteRevealed
	case models.OpResolveCase:
		return TypeCaseResolved
	default:
		return TypeStateChanged
	}
}

func New(seq uint64, entry models.Entry, outcome *models.Outcome) Event {
	return Event{
		ID:       uuid.New(),
		Type:     TypeOf(entry.Op),
		Sequence: seq,
		Entry:    entry,
		Outcome:  outcome,
	}
}

// Key groups events of one ballot together. Registry changes share a key.
func (e Event) Key() string {
	if e.Entry.Ballot == nil {
		return "registry"
	}
	return e.Entry.Ballot.String()
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
