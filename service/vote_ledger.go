package service

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ballot-backend/models"
	"ballot-backend/registry"
)

// VoteLedger owns accepted vote records and the global anti-replay token set.
// Whether a voter has voted is always derived from the records.
type VoteLedger struct {
	registry *registry.Registry
	ballots  *BallotStore
	records  map[models.BallotRef][]models.VoteRecord
	voted    map[models.BallotRef]map[models.Identity]struct{}
	tokens   map[common.Hash]models.BallotRef
}

func NewVoteLedger(reg *registry.Registry, ballots *BallotStore) *VoteLedger {
	return &VoteLedger{
		registry: reg,
		ballots:  ballots,
		records:  make(map[models.BallotRef][]models.VoteRecord),
		voted:    make(map[models.BallotRef]map[models.Identity]struct{}),
		tokens:   make(map[common.Hash]models.BallotRef),
	}
}

func caseRef(id uint64) models.BallotRef {
	return models.BallotRef{Kind: models.KindCase, ID: id}
}

func electionRef(id uint64) models.BallotRef {
	return models.BallotRef{Kind: models.KindElection, ID: id}
}

func (l *VoteLedger) hasVoted(ref models.BallotRef, voter models.Identity) bool {
	_, found := l.voted[ref][voter]
	return found
}

func (l *VoteLedger) append(rec models.VoteRecord) {
	l.records[rec.Ballot] = append(l.records[rec.Ballot], rec)

	m, found := l.voted[rec.Ballot]
	if !found {
		m = make(map[models.Identity]struct{})
		l.voted[rec.Ballot] = m
	}
	m[rec.Voter] = struct{}{}

	if rec.Ballot.Kind == models.KindCase {
		l.tokens[rec.Token] = rec.Ballot
	}
}

func (l *VoteLedger) checkSubmitVote(caller models.Identity, caseID uint64, token common.Hash, at time.Time) error {
	c, err := l.ballots.caseByID(caseID)
	if err != nil {
		return err
	}
	if !c.AcceptsVotesAt(at) {
		return models.ErrVotingClosed.Errorf("case %d is closed for voting", caseID)
	}
	if !l.registry.IsEligibleVoter(caller) && !l.registry.IsBoardMember(caller) {
		return models.ErrUnauthorized.Errorf("%s is neither a verified voter nor a board member", caller.Hex())
	}
	if ref, used := l.tokens[token]; used {
		return models.ErrTokenReused.Errorf("token %s was already used on %s", token.Hex(), ref)
	}
	if l.hasVoted(caseRef(caseID), caller) {
		return models.ErrDuplicateVote.Errorf("%s already voted on case %d", caller.Hex(), caseID)
	}
	return nil
}

func (l *VoteLedger) submitVote(entry models.Entry) {
	c := l.ballots.cases[entry.Ballot.ID]
	if entry.Approve {
		c.YesVotes++
	} else {
		c.NoVotes++
	}

	l.append(models.VoteRecord{
		ID:        entry.ID,
		Voter:     entry.Caller,
		Ballot:    *entry.Ballot,
		Approve:   entry.Approve,
		Token:     *entry.Token,
		Timestamp: entry.At,
	})
}

func (l *VoteLedger) checkCastVote(caller models.Identity, electionID, candidate uint64) error {
	e, err := l.ballots.election(electionID)
	if err != nil {
		return err
	}
	if e.Phase != models.PhaseOpen {
		return models.ErrInvalidPhase.Errorf("election %d is %s, not open", electionID, e.Phase)
	}
	if !l.registry.IsEligibleVoter(caller) {
		return models.ErrUnauthorized.Errorf("%s is not a registered voter", caller.Hex())
	}
	if candidate >= uint64(len(e.Candidates)) {
		return models.ErrInvalidCandidate.Errorf("election %d has no candidate %d", electionID, candidate)
	}
	if l.hasVoted(electionRef(electionID), caller) {
		return models.ErrDuplicateVote.Errorf("%s already voted in election %d", caller.Hex(), electionID)
	}
	return nil
}

// countElectionVote credits one election vote for the entry's caller.
func (l *VoteLedger) countElectionVote(entry models.Entry) {
	e := l.ballots.elections[entry.Ballot.ID]
	e.Candidates[entry.Candidate].VoteCount++

	l.append(models.VoteRecord{
		ID:        entry.ID,
		Voter:     entry.Caller,
		Ballot:    *entry.Ballot,
		Candidate: entry.Candidate,
		Timestamp: entry.At,
	})
}

func (l *VoteLedger) Records(ref models.BallotRef) []models.VoteRecord {
	recs := l.records[ref]
	out := make([]models.VoteRecord, len(recs))
	copy(out, recs)
	return out
}

func (l *VoteLedger) HasVoted(ref models.BallotRef, voter models.Identity) bool {
	return l.hasVoted(ref, voter)
}

func (l *VoteLedger) TokenUsed(token common.Hash) bool {
	_, used := l.tokens[token]
	return used
}
