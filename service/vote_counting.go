package service

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ballot-backend/models"
	"ballot-backend/registry"
)

// VoteCountingService resolves cases, totals elections and verifies that the
// counters agree with the recorded votes.
type VoteCountingService struct {
	registry *registry.Registry
	ballots  *BallotStore
	ledger   *VoteLedger
}

func NewVoteCountingService(reg *registry.Registry, ballots *BallotStore, ledger *VoteLedger) *VoteCountingService {
	return &VoteCountingService{
		registry: reg,
		ballots:  ballots,
		ledger:   ledger,
	}
}

func (vcs *VoteCountingService) checkResolveCase(caller models.Identity, caseID uint64, at time.Time) error {
	c, err := vcs.ballots.caseByID(caseID)
	if err != nil {
		return err
	}
	if !vcs.registry.IsBoardMember(caller) {
		return models.ErrUnauthorized.Errorf("%s is not a board member", caller.Hex())
	}
	if !c.Active {
		return models.ErrAlreadyResolved.Errorf("case %d is already resolved", caseID)
	}
	if at.Before(c.Deadline) {
		return models.ErrVotingStillActive.Errorf("case %d accepts votes until %s", caseID, c.Deadline)
	}
	return nil
}

// resolveCase freezes the tally. Ties are rejected.
func (vcs *VoteCountingService) resolveCase(entry models.Entry) *models.Outcome {
	c := vcs.ballots.cases[entry.Ballot.ID]
	c.Active = false
	c.Outcome = &models.Outcome{
		Approved:   c.YesVotes > c.NoVotes,
		YesVotes:   c.YesVotes,
		NoVotes:    c.NoVotes,
		ResolvedAt: entry.At,
		ResolvedBy: entry.Caller,
	}

	o := *c.Outcome
	return &o
}

// ElectionResult is the tally of one election. Winners holds every candidate
// sharing the top count and is empty while nobody has voted.
type ElectionResult struct {
	ID         uint64       `json:"id"`
	Title      string       `json:"title"`
	Phase      models.Phase `json:"phase"`
	Names      []string     `json:"names"`
	Counts     []uint64     `json:"counts"`
	TotalVotes uint64       `json:"total_votes"`
	Winners    []string     `json:"winners"`
}

func (vcs *VoteCountingService) ElectionResults(id uint64) (*ElectionResult, error) {
	e, err := vcs.ballots.election(id)
	if err != nil {
		return nil, err
	}

	r := &ElectionResult{
		ID:      e.ID,
		Title:   e.Title,
		Phase:   e.Phase,
		Names:   make([]string, len(e.Candidates)),
		Counts:  make([]uint64, len(e.Candidates)),
		Winners: []string{},
	}

	var top uint64
	for i, c := range e.Candidates {
		r.Names[i] = c.Name
		r.Counts[i] = c.VoteCount
		r.TotalVotes += c.VoteCount
		if c.VoteCount > top {
			top = c.VoteCount
		}
	}

	if top > 0 {
		for _, c := range e.Candidates {
			if c.VoteCount == top {
				r.Winners = append(r.Winners, c.Name)
			}
		}
	}

	return r, nil
}

type BallotAudit struct {
	Ballot       models.BallotRef `json:"ballot"`
	Tally        uint64           `json:"tally"`
	Records      int              `json:"records"`
	UniqueVoters int              `json:"unique_voters"`
	Consistent   bool             `json:"consistent"`
}

// AuditReport is the result of checking live state against the journal.
type AuditReport struct {
	Blocks          int           `json:"blocks"`
	ChainValid      bool          `json:"chain_valid"`
	ChainError      string        `json:"chain_error,omitempty"`
	Ballots         []BallotAudit `json:"ballots"`
	TotalRecords    int           `json:"total_records"`
	JournalVotes    int           `json:"journal_votes"`
	DuplicateTokens int           `json:"duplicate_tokens"`
	DuplicateVoters int           `json:"duplicate_voters"`
	Valid           bool          `json:"valid"`
}

func (vcs *VoteCountingService) Audit(blocks []*models.Block) *AuditReport {
	report := &AuditReport{
		Blocks:     len(blocks),
		ChainValid: true,
		Ballots:    []BallotAudit{},
	}

	if err := models.ValidateChain(blocks); err != nil {
		report.ChainValid = false
		report.ChainError = err.Error()
	}

	for _, b := range blocks {
		entry, err := b.Entry()
		if err != nil {
			report.ChainValid = false
			report.ChainError = err.Error()
			continue
		}
		switch entry.Op {
		case models.OpSubmitVote, models.OpCastVote, models.OpRevealVote:
			report.JournalVotes++
		}
	}

	tokens := make(map[common.Hash]struct{})
	consistent := true

	audit := func(ref models.BallotRef, tally uint64, extra bool) {
		recs := vcs.ledger.records[ref]
		voters := make(map[models.Identity]struct{}, len(recs))
		for _, rec := range recs {
			if _, dup := voters[rec.Voter]; dup {
				report.DuplicateVoters++
			}
			voters[rec.Voter] = struct{}{}

			if ref.Kind == models.KindCase {
				if _, dup := tokens[rec.Token]; dup {
					report.DuplicateTokens++
				}
				tokens[rec.Token] = struct{}{}
			}
		}

		ba := BallotAudit{
			Ballot:       ref,
			Tally:        tally,
			Records:      len(recs),
			UniqueVoters: len(voters),
			Consistent:   extra && tally == uint64(len(recs)) && len(voters) == len(recs),
		}
		consistent = consistent && ba.Consistent
		report.TotalRecords += len(recs)
		report.Ballots = append(report.Ballots, ba)
	}

	for _, e := range vcs.ballots.elections {
		audit(electionRef(e.ID), e.TotalVotes(), true)
	}

	for _, c := range vcs.ballots.cases {
		ok := c.Active == (c.Outcome == nil)
		if c.Outcome != nil {
			ok = ok && c.Outcome.YesVotes == c.YesVotes &&
				c.Outcome.NoVotes == c.NoVotes &&
				c.Outcome.Approved == (c.YesVotes > c.NoVotes)
		}
		audit(caseRef(c.ID), c.YesVotes+c.NoVotes, ok)
	}

	report.Valid = report.ChainValid && consistent &&
		report.DuplicateTokens == 0 && report.DuplicateVoters == 0 &&
		report.JournalVotes == report.TotalRecords

	return report
}
