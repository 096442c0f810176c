package models

import (
	"fmt"
	"time"
)

type BallotKind string

const (
	KindElection BallotKind = "election"
	KindCase     BallotKind = "case"
)

// BallotRef names one ballot. Elections and cases keep separate id sequences.
type BallotRef struct {
	Kind BallotKind `json:"kind"`
	ID   uint64     `json:"id"`
}

func (r BallotRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Phase is the election lifecycle: NotStarted -> Open -> RevealPending.
type Phase string

const (
	PhaseNotStarted    Phase = "not_started"
	PhaseOpen          Phase = "open"
	PhaseRevealPending Phase = "reveal_pending"
)

type Candidate struct {
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type Election struct {
	ID         uint64      `json:"id"`
	Title      string      `json:"title"`
	Candidates []Candidate `json:"candidates"`
	Phase      Phase       `json:"phase"`
	CreatedAt  time.Time   `json:"created_at"`
	CreatedBy  Identity    `json:"created_by"`
}

// TotalVotes sums the candidate counts.
func (e Election) TotalVotes() uint64 {
	var total uint64
	for _, c := range e.Candidates {
		total += c.VoteCount
	}
	return total
}

func (e Election) Clone() Election {
	c := e
	c.Candidates = make([]Candidate, len(e.Candidates))
	copy(c.Candidates, e.Candidates)
	return c
}

// Outcome is written once, when a case is resolved.
type Outcome struct {
	Approved   bool      `json:"approved"`
	YesVotes   uint64    `json:"yes_votes"`
	NoVotes    uint64    `json:"no_votes"`
	ResolvedAt time.Time `json:"resolved_at"`
	ResolvedBy Identity  `json:"resolved_by"`
}

// Case is a yes/no ethics ballot with a fixed deadline.
type Case struct {
	ID          uint64    `json:"id"`
	Description string    `json:"description"`
	YesVotes    uint64    `json:"yes_votes"`
	NoVotes     uint64    `json:"no_votes"`
	CreatedAt   time.Time `json:"created_at"`
	Deadline    time.Time `json:"deadline"`
	Active      bool      `json:"active"`
	CreatedBy   Identity  `json:"created_by"`
	Outcome     *Outcome  `json:"outcome,omitempty"`
}

// AcceptsVotesAt reports whether the case is still open at t.
func (c Case) AcceptsVotesAt(t time.Time) bool {
	return c.Active && t.Before(c.Deadline)
}

func (c Case) Clone() Case {
	n := c
	if c.Outcome != nil {
		o := *c.Outcome
		n.Outcome = &o
	}
	return n
}
