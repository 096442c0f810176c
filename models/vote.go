package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// VoteRecord is one accepted vote. Cases fill Approve and Token, elections
// fill Candidate.
type VoteRecord struct {
	ID        uuid.UUID   `json:"id"`
	Voter     Identity    `json:"voter"`
	Ballot    BallotRef   `json:"ballot"`
	Approve   bool        `json:"approve"`
	Candidate uint64      `json:"candidate"`
	Token     common.Hash `json:"token"`
	Timestamp time.Time   `json:"timestamp"`
}

// Commitment binds a hidden candidate choice. Revealed commitments are kept
// for audit and are no longer live.
type Commitment struct {
	Voter       Identity    `json:"voter"`
	Hash        common.Hash `json:"hash"`
	CommittedAt time.Time   `json:"committed_at"`
	Revealed    bool        `json:"revealed"`
	RevealedAt  time.Time   `json:"revealed_at"`
}

// Receipt is returned by every accepted command.
type Receipt struct {
	ID       uuid.UUID  `json:"id"`
	Op       Op         `json:"op"`
	Sequence uint64     `json:"sequence"`
	Ballot   *BallotRef `json:"ballot,omitempty"`
	At       time.Time  `json:"at"`
}
