package service

import (
	"github.com/ethereum/go-ethereum/common"

	"ballot-backend/encryption"
	"ballot-backend/models"
	"ballot-backend/registry"
)

// CommitReveal holds election commitments. A voter has at most one
// commitment per election; committing again replaces it until it is
// revealed, and revealed commitments stay for audit.
type CommitReveal struct {
	registry    *registry.Registry
	ballots     *BallotStore
	ledger      *VoteLedger
	commitments map[uint64]map[models.Identity]*models.Commitment
	order       map[uint64][]models.Identity
}

func NewCommitReveal(reg *registry.Registry, ballots *BallotStore, ledger *VoteLedger) *CommitReveal {
	return &CommitReveal{
		registry:    reg,
		ballots:     ballots,
		ledger:      ledger,
		commitments: make(map[uint64]map[models.Identity]*models.Commitment),
		order:       make(map[uint64][]models.Identity),
	}
}

func (cr *CommitReveal) checkCommitVote(caller models.Identity, electionID uint64) error {
	e, err := cr.ballots.election(electionID)
	if err != nil {
		return err
	}
	if e.Phase != models.PhaseOpen {
		return models.ErrInvalidPhase.Errorf("election %d is %s, commitments are only accepted while open", electionID, e.Phase)
	}
	if !cr.registry.IsEligibleVoter(caller) {
		return models.ErrUnauthorized.Errorf("%s is not a registered voter", caller.Hex())
	}
	if cr.ledger.hasVoted(electionRef(electionID), caller) {
		return models.ErrDuplicateVote.Errorf("%s already voted in election %d", caller.Hex(), electionID)
	}
	return nil
}

func (cr *CommitReveal) commitVote(entry models.Entry) {
	id := entry.Ballot.ID

	m, found := cr.commitments[id]
	if !found {
		m = make(map[models.Identity]*models.Commitment)
		cr.commitments[id] = m
	}

	if c, found := m[entry.Caller]; found {
		c.Hash = *entry.Commitment
		c.CommittedAt = entry.At
		return
	}

	m[entry.Caller] = &models.Commitment{
		Voter:       entry.Caller,
		Hash:        *entry.Commitment,
		CommittedAt: entry.At,
	}
	cr.order[id] = append(cr.order[id], entry.Caller)
}

func (cr *CommitReveal) checkRevealVote(caller models.Identity, electionID, candidate uint64, salt string) error {
	e, err := cr.ballots.election(electionID)
	if err != nil {
		return err
	}
	if e.Phase != models.PhaseRevealPending {
		return models.ErrInvalidPhase.Errorf("election %d is %s, not in reveal phase", electionID, e.Phase)
	}

	c := cr.commitments[electionID][caller]
	if c == nil {
		return models.ErrNoCommitment.Errorf("%s has no commitment in election %d", caller.Hex(), electionID)
	}
	if encryption.CommitmentHash(candidate, salt) != c.Hash {
		return models.ErrCommitmentMismatch.Errorf("reveal does not match the commitment of %s", caller.Hex())
	}
	if cr.ledger.hasVoted(electionRef(electionID), caller) {
		return models.ErrDuplicateVote.Errorf("%s already voted in election %d", caller.Hex(), electionID)
	}
	if candidate >= uint64(len(e.Candidates)) {
		return models.ErrInvalidCandidate.Errorf("election %d has no candidate %d", electionID, candidate)
	}
	return nil
}

func (cr *CommitReveal) revealVote(entry models.Entry) {
	cr.ledger.countElectionVote(entry)

	c := cr.commitments[entry.Ballot.ID][entry.Caller]
	c.Revealed = true
	c.RevealedAt = entry.At
}

// Commitment returns the live commitment hash, or the zero hash when there is
// none or it was already revealed.
func (cr *CommitReveal) Commitment(electionID uint64, voter models.Identity) common.Hash {
	c := cr.commitments[electionID][voter]
	if c == nil || c.Revealed {
		return common.Hash{}
	}
	return c.Hash
}

func (cr *CommitReveal) Commitments(electionID uint64) []models.Commitment {
	ids := cr.order[electionID]
	out := make([]models.Commitment, len(ids))
	for i, id := range ids {
		out[i] = *cr.commitments[electionID][id]
	}
	return out
}
