package models

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Op names one accepted command in the journal.
type Op string

const (
	OpGenesis        Op = "genesis"
	OpRegisterVoter  Op = "register_voter"
	OpVerifyVoter    Op = "verify_voter"
	OpCreateElection Op = "create_election"
	OpAddCandidate   Op = "add_candidate"
	OpStartVoting    Op = "start_voting"
	OpEndVoting      Op = "end_voting"
	OpCastVote       Op = "cast_vote"
	OpCommitVote     Op = "commit_vote"
	OpRevealVote     Op = "reveal_vote"
	OpCreateCase     Op = "create_case"
	OpSubmitVote     Op = "submit_vote"
	OpResolveCase    Op = "resolve_case"
)

// Genesis fixes the privileged roles. It is always journal entry 0.
type Genesis struct {
	Administrators []Identity `json:"administrators" yaml:"administrators"`
	BoardMembers   []Identity `json:"board_members" yaml:"board_members"`
	Voters         []Identity `json:"voters" yaml:"voters"`
}

// Entry is the payload of one journal block. Replaying entries in order
// rebuilds the whole ballot state.
type Entry struct {
	Op     Op         `json:"op"`
	ID     uuid.UUID  `json:"id"`
	Caller Identity   `json:"caller"`
	At     time.Time  `json:"at"`
	Ballot *BallotRef `json:"ballot,omitempty"`

	Target          *Identity    `json:"target,omitempty"`
	Text            string       `json:"text,omitempty"`
	DurationSeconds int64        `json:"duration_seconds,omitempty"`
	Approve         bool         `json:"approve,omitempty"`
	Candidate       uint64       `json:"candidate,omitempty"`
	Token           *common.Hash `json:"token,omitempty"`
	Commitment      *common.Hash `json:"commitment,omitempty"`
	Salt            string       `json:"salt,omitempty"`
	Genesis         *Genesis     `json:"genesis,omitempty"`
}

func (e Entry) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s entry", e.Op)
	}
	return b, nil
}

func UnmarshalEntry(b []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, errors.Wrap(err, "failed to unmarshal journal entry")
	}
	return e, nil
}
