package service

import (
	"math"
	"time"

	"ballot-backend/models"
	"ballot-backend/registry"
)

const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// BallotStore owns elections and cases and assigns their ids. It is not safe
// for concurrent use; VotingService serializes every access.
type BallotStore struct {
	registry  *registry.Registry
	elections []*models.Election
	cases     []*models.Case
}

func NewBallotStore(reg *registry.Registry) *BallotStore {
	return &BallotStore{registry: reg}
}

func (s *BallotStore) election(id uint64) (*models.Election, error) {
	if id >= uint64(len(s.elections)) {
		return nil, models.ErrNotFound.Errorf("election %d not found", id)
	}
	return s.elections[id], nil
}

func (s *BallotStore) caseByID(id uint64) (*models.Case, error) {
	if id >= uint64(len(s.cases)) {
		return nil, models.ErrNotFound.Errorf("case %d not found", id)
	}
	return s.cases[id], nil
}

func (s *BallotStore) requireAdministrator(caller models.Identity) error {
	if !s.registry.IsAdministrator(caller) {
		return models.ErrUnauthorized.Errorf("%s is not an administrator", caller.Hex())
	}
	return nil
}

func (s *BallotStore) requireBoardMember(caller models.Identity) error {
	if !s.registry.IsBoardMember(caller) {
		return models.ErrUnauthorized.Errorf("%s is not a board member", caller.Hex())
	}
	return nil
}

func (s *BallotStore) nextElection() models.BallotRef {
	return models.BallotRef{Kind: models.KindElection, ID: uint64(len(s.elections))}
}

func (s *BallotStore) nextCase() models.BallotRef {
	return models.BallotRef{Kind: models.KindCase, ID: uint64(len(s.cases))}
}

func (s *BallotStore) checkCreateElection(caller models.Identity) (models.BallotRef, error) {
	if err := s.requireAdministrator(caller); err != nil {
		return models.BallotRef{}, err
	}
	return s.nextElection(), nil
}

func (s *BallotStore) createElection(caller models.Identity, title string, at time.Time) *models.Election {
	e := &models.Election{
		ID:         uint64(len(s.elections)),
		Title:      title,
		Candidates: []models.Candidate{},
		Phase:      models.PhaseNotStarted,
		CreatedAt:  at,
		CreatedBy:  caller,
	}
	s.elections = append(s.elections, e)
	return e
}

func (s *BallotStore) checkAddCandidate(caller models.Identity, id uint64) error {
	e, err := s.election(id)
	if err != nil {
		return err
	}
	if err := s.requireAdministrator(caller); err != nil {
		return err
	}
	if e.Phase != models.PhaseNotStarted {
		return models.ErrInvalidPhase.Errorf("election %d is %s, candidates can only be added before voting starts", id, e.Phase)
	}
	return nil
}

func (s *BallotStore) addCandidate(id uint64, name string) {
	e := s.elections[id]
	e.Candidates = append(e.Candidates, models.Candidate{Name: name})
}

func (s *BallotStore) checkStartVoting(caller models.Identity, id uint64) error {
	e, err := s.election(id)
	if err != nil {
		return err
	}
	if err := s.requireAdministrator(caller); err != nil {
		return err
	}
	if e.Phase != models.PhaseNotStarted {
		return models.ErrInvalidPhase.Errorf("election %d is already %s", id, e.Phase)
	}
	if len(e.Candidates) < 2 {
		return models.ErrInsufficientCandidates.Errorf("election %d has %d candidates, at least 2 are required", id, len(e.Candidates))
	}
	return nil
}

func (s *BallotStore) checkEndVoting(caller models.Identity, id uint64) error {
	e, err := s.election(id)
	if err != nil {
		return err
	}
	if err := s.requireAdministrator(caller); err != nil {
		return err
	}
	if e.Phase != models.PhaseOpen {
		return models.ErrInvalidPhase.Errorf("election %d is %s, not open", id, e.Phase)
	}
	return nil
}

func (s *BallotStore) setPhase(id uint64, phase models.Phase) {
	s.elections[id].Phase = phase
}

func (s *BallotStore) checkCreateCase(caller models.Identity, durationSeconds int64) (models.BallotRef, error) {
	if err := s.requireBoardMember(caller); err != nil {
		return models.BallotRef{}, err
	}
	if durationSeconds <= 0 {
		return models.BallotRef{}, models.ErrInvalidDuration.Errorf("duration must be positive, got %d seconds", durationSeconds)
	}
	if durationSeconds > maxDurationSeconds {
		return models.BallotRef{}, models.ErrInvalidDuration.Errorf("duration of %d seconds is too long", durationSeconds)
	}
	return s.nextCase(), nil
}

func (s *BallotStore) createCase(caller models.Identity, description string, durationSeconds int64, at time.Time) *models.Case {
	c := &models.Case{
		ID:          uint64(len(s.cases)),
		Description: description,
		CreatedAt:   at,
		Deadline:    at.Add(time.Duration(durationSeconds) * time.Second),
		Active:      true,
		CreatedBy:   caller,
	}
	s.cases = append(s.cases, c)
	return c
}

func (s *BallotStore) Election(id uint64) (models.Election, error) {
	e, err := s.election(id)
	if err != nil {
		return models.Election{}, err
	}
	return e.Clone(), nil
}

func (s *BallotStore) Elections() []models.Election {
	out := make([]models.Election, len(s.elections))
	for i, e := range s.elections {
		out[i] = e.Clone()
	}
	return out
}

func (s *BallotStore) Case(id uint64) (models.Case, error) {
	c, err := s.caseByID(id)
	if err != nil {
		return models.Case{}, err
	}
	return c.Clone(), nil
}

func (s *BallotStore) Cases() []models.Case {
	out := make([]models.Case, len(s.cases))
	for i, c := range s.cases {
		out[i] = c.Clone()
	}
	return out
}

func (s *BallotStore) CasesCount() int {
	return len(s.cases)
}
