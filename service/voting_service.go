package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"ballot-backend/events"
	"ballot-backend/logging"
	"ballot-backend/models"
	"ballot-backend/registry"
	"ballot-backend/storage"
)

// VotingService is the ballot state machine. Every command is validated,
// journaled and applied under one write lock, so commands are linearizable
// in arrival order. The journal is the only persisted state; opening a
// service replays it through the same apply path.
type VotingService struct {
	*logging.Logging
	mu        sync.RWMutex
	driver    storage.Driver
	clock     Clock
	metrics   *Metrics
	publisher events.Publisher
	queueSize int
	queue     *NotificationQueue
	blocks    []*models.Block
	registry  *registry.Registry
	ballots   *BallotStore
	ledger    *VoteLedger
	commits   *CommitReveal
	counting  *VoteCountingService
}

type Option func(*VotingService)

func WithClock(c Clock) Option {
	return func(vs *VotingService) {
		vs.clock = c
	}
}

func WithMetrics(m *Metrics) Option {
	return func(vs *VotingService) {
		vs.metrics = m
	}
}

func WithPublisher(p events.Publisher, queueSize int) Option {
	return func(vs *VotingService) {
		vs.publisher = p
		vs.queueSize = queueSize
	}
}

func WithLogging(l *logging.Logging) Option {
	return func(vs *VotingService) {
		vs.SetLogging(l)
	}
}

func NewVotingService(ctx context.Context, driver storage.Driver, opts ...Option) (*VotingService, error) {
	reg := registry.New()
	ballots := NewBallotStore(reg)
	ledger := NewVoteLedger(reg, ballots)

	vs := &VotingService{
		Logging:   logging.NewLogging(logging.Module("voting-service")),
		driver:    driver,
		clock:     SystemClock{},
		queueSize: 256,
		registry:  reg,
		ballots:   ballots,
		ledger:    ledger,
		commits:   NewCommitReveal(reg, ballots, ledger),
		counting:  NewVoteCountingService(reg, ballots, ledger),
	}

	for _, opt := range opts {
		opt(vs)
	}

	if vs.metrics == nil {
		vs.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if vs.publisher == nil {
		vs.publisher = events.NewLogPublisher(vs.Logging)
	}

	blocks, err := driver.Load(ctx)
	if err != nil {
		return nil, models.ErrStorage.Wrap(err)
	}

	if err := vs.replay(blocks); err != nil {
		return nil, err
	}

	vs.queue = NewNotificationQueue(vs.publisher, vs.queueSize)
	vs.queue.SetLogging(vs.Logging)
	vs.queue.onDrop = func(events.Event) { vs.metrics.Dropped.Inc() }

	vs.Log().Debug().Int("blocks", len(blocks)).Msg("journal replayed")

	return vs, nil
}

func (vs *VotingService) replay(blocks []*models.Block) error {
	if err := models.ValidateChain(blocks); err != nil {
		return models.ErrStorage.Wrap(errors.Wrap(err, "invalid journal"))
	}

	for i, b := range blocks {
		entry, err := b.Entry()
		if err != nil {
			return models.ErrStorage.Wrap(err)
		}

		if (i == 0) != (entry.Op == models.OpGenesis) {
			return models.ErrStorage.Wrap(errors.Errorf("journal entry %d has unexpected op %s", i, entry.Op))
		}

		if err := vs.validate(&entry); err != nil {
			return models.ErrStorage.Wrap(errors.Wrapf(err, "journal entry %d rejected on replay", i))
		}

		vs.blocks = append(vs.blocks, b)
		vs.apply(entry)
	}

	vs.metrics.JournalLength.Set(float64(len(vs.blocks)))

	return nil
}

// Close drains pending notifications and closes the driver.
func (vs *VotingService) Close() error {
	qerr := vs.queue.Close()
	if err := vs.driver.Close(); err != nil {
		return models.ErrStorage.Wrap(err)
	}
	return qerr
}

func (vs *VotingService) execute(ctx context.Context, entry models.Entry) (*models.Receipt, error) {
	started := time.Now()

	vs.mu.Lock()
	receipt, err := vs.executeLocked(ctx, entry)
	vs.mu.Unlock()

	vs.metrics.observe(entry.Op, started, err)

	if err != nil {
		vs.Log().Info().Err(err).
			Str("op", string(entry.Op)).
			Str("kind", string(models.KindOf(err))).
			Str("caller", entry.Caller.Hex()).
			Msg("command rejected")
		return nil, err
	}

	vs.Log().Debug().
		Str("op", string(entry.Op)).
		Uint64("sequence", receipt.Sequence).
		Func(func(e *zerolog.Event) {
			if receipt.Ballot != nil {
				e.Stringer("ballot", receipt.Ballot)
			}
		}).
		Msg("command accepted")

	return receipt, nil
}

func (vs *VotingService) executeLocked(ctx context.Context, entry models.Entry) (*models.Receipt, error) {
	if entry.Op != models.OpGenesis && !vs.registry.Seeded() {
		return nil, models.ErrNotInitialized.Errorf("journal has no genesis entry")
	}

	entry.ID = uuid.New()
	entry.At = vs.clock.Now().UTC()

	if entry.Op == models.OpVerifyVoter {
		if err := vs.registry.CanVerify(entry.Caller); err != nil {
			return nil, err
		}
		if seq, found := vs.registry.GrantedAt(target(entry)); found {
			return newReceipt(entry, seq), nil
		}
	}

	if err := vs.validate(&entry); err != nil {
		return nil, err
	}

	block, err := vs.newBlock(entry)
	if err != nil {
		return nil, models.ErrStorage.Wrap(err)
	}

	if err := vs.driver.Append(ctx, block); err != nil {
		return nil, models.ErrStorage.Wrap(err)
	}

	vs.blocks = append(vs.blocks, block)
	vs.metrics.JournalLength.Set(float64(len(vs.blocks)))

	outcome := vs.apply(entry)
	vs.queue.Enqueue(events.New(block.Index, entry, outcome))

	return newReceipt(entry, block.Index), nil
}

func newReceipt(entry models.Entry, seq uint64) *models.Receipt {
	return &models.Receipt{
		ID:       entry.ID,
		Op:       entry.Op,
		Sequence: seq,
		Ballot:   entry.Ballot,
		At:       entry.At,
	}
}

func (vs *VotingService) newBlock(entry models.Entry) (*models.Block, error) {
	data, err := entry.Marshal()
	if err != nil {
		return nil, err
	}

	ts := entry.At.UnixNano()
	prev := models.GenesisPrevHash()
	if n := len(vs.blocks); n > 0 {
		last := vs.blocks[n-1]
		prev = last.Hash
		if ts < last.Timestamp {
			ts = last.Timestamp
		}
	}

	return models.NewBlock(uint64(len(vs.blocks)), ts, data, prev), nil
}

func ballotID(entry models.Entry) uint64 {
	if entry.Ballot == nil {
		return math.MaxUint64
	}
	return entry.Ballot.ID
}

func assignRef(entry *models.Entry, next models.BallotRef) error {
	if entry.Ballot == nil {
		entry.Ballot = &next
		return nil
	}
	if *entry.Ballot != next {
		return errors.Errorf("entry assigns %s, expected %s", entry.Ballot, next)
	}
	return nil
}

func target(entry models.Entry) models.Identity {
	if entry.Target == nil {
		return models.Identity{}
	}
	return *entry.Target
}

func hashOf(h *common.Hash) common.Hash {
	if h == nil {
		return common.Hash{}
	}
	return *h
}

// validate checks an entry against the current state without changing it.
// Ops that create a ballot get their id assigned here.
func (vs *VotingService) validate(entry *models.Entry) error {
	caller := entry.Caller

	switch entry.Op {
	case models.OpGenesis:
		if vs.registry.Seeded() {
			return models.ErrInvalidGenesis.Errorf("journal is already initialized")
		}
		if entry.Genesis == nil {
			return models.ErrInvalidGenesis.Errorf("genesis entry has no role sets")
		}
		return registry.ValidateGenesis(*entry.Genesis)
	case models.OpRegisterVoter:
		return vs.registry.CanRegister(caller, target(*entry))
	case models.OpVerifyVoter:
		return vs.registry.CanVerify(caller)
	case models.OpCreateElection:
		next, err := vs.ballots.checkCreateElection(caller)
		if err != nil {
			return err
		}
		return assignRef(entry, next)
	case models.OpAddCandidate:
		return vs.ballots.checkAddCandidate(caller, ballotID(*entry))
	case models.OpStartVoting:
		return vs.ballots.checkStartVoting(caller, ballotID(*entry))
	case models.OpEndVoting:
		return vs.ballots.checkEndVoting(caller, ballotID(*entry))
	case models.OpCastVote:
		return vs.ledger.checkCastVote(caller, ballotID(*entry), entry.Candidate)
	case models.OpCommitVote:
		if entry.Commitment == nil {
			entry.Commitment = &common.Hash{}
		}
		return vs.commits.checkCommitVote(caller, ballotID(*entry))
	case models.OpRevealVote:
		return vs.commits.checkRevealVote(caller, ballotID(*entry), entry.Candidate, entry.Salt)
	case models.OpCreateCase:
		next, err := vs.ballots.checkCreateCase(caller, entry.DurationSeconds)
		if err != nil {
			return err
		}
		return assignRef(entry, next)
	case models.OpSubmitVote:
		token := hashOf(entry.Token)
		entry.Token = &token
		return vs.ledger.checkSubmitVote(caller, ballotID(*entry), token, entry.At)
	case models.OpResolveCase:
		return vs.counting.checkResolveCase(caller, ballotID(*entry), entry.At)
	default:
		return errors.Errorf("unknown op %q", entry.Op)
	}
}

// apply mutates state for a validated entry. It returns the outcome of a
// case resolution and nil otherwise.
func (vs *VotingService) apply(entry models.Entry) *models.Outcome {
	seq := uint64(len(vs.blocks) - 1)

	switch entry.Op {
	case models.OpGenesis:
		_ = vs.registry.Seed(*entry.Genesis, seq)
	case models.OpRegisterVoter, models.OpVerifyVoter:
		vs.registry.Grant(target(entry), seq)
	case models.OpCreateElection:
		vs.ballots.createElection(entry.Caller, entry.Text, entry.At)
	case models.OpAddCandidate:
		vs.ballots.addCandidate(entry.Ballot.ID, entry.Text)
	case models.OpStartVoting:
		vs.ballots.setPhase(entry.Ballot.ID, models.PhaseOpen)
	case models.OpEndVoting:
		vs.ballots.setPhase(entry.Ballot.ID, models.PhaseRevealPending)
	case models.OpCastVote:
		vs.ledger.countElectionVote(entry)
	case models.OpCommitVote:
		vs.commits.commitVote(entry)
	case models.OpRevealVote:
		vs.commits.revealVote(entry)
	case models.OpCreateCase:
		vs.ballots.createCase(entry.Caller, entry.Text, entry.DurationSeconds, entry.At)
	case models.OpSubmitVote:
		vs.ledger.submitVote(entry)
	case models.OpResolveCase:
		return vs.counting.resolveCase(entry)
	}

	return nil
}

// Initialize journals the genesis roles. It fails once the journal has one.
func (vs *VotingService) Initialize(ctx context.Context, g models.Genesis) (*models.Receipt, error) {
	caller := models.Identity{}
	if len(g.Administrators) > 0 {
		caller = g.Administrators[0]
	}
	return vs.execute(ctx, models.Entry{Op: models.OpGenesis, Caller: caller, Genesis: &g})
}

func (vs *VotingService) Initialized() bool {
	return vs.registry.Seeded()
}

func (vs *VotingService) RegisterVoter(ctx context.Context, caller, voter models.Identity) (*models.Receipt, error) {
	return vs.execute(ctx, models.Entry{Op: models.OpRegisterVoter, Caller: caller, Target: &voter})
}

// VerifyVoter lets a board member make voter eligible. Verifying an
// eligible voter again returns the receipt of the original grant.
func (vs *VotingService) VerifyVoter(ctx context.Context, caller, voter models.Identity) (*models.Receipt, error) {
	return vs.execute(ctx, models.Entry{Op: models.OpVerifyVoter, Caller: caller, Target: &voter})
}

func (vs *VotingService) CreateElection(ctx context.Context, caller models.Identity, title string) (uint64, *models.Receipt, error) {
	r, err := vs.execute(ctx, models.Entry{Op: models.OpCreateElection, Caller: caller, Text: title})
	if err != nil {
		return 0, nil, err
	}
	return r.Ballot.ID, r, nil
}

func (vs *VotingService) AddCandidate(ctx context.Context, caller models.Identity, electionID uint64, name string) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{Op: models.OpAddCandidate, Caller: caller, Ballot: &ref, Text: name})
}

func (vs *VotingService) StartVoting(ctx context.Context, caller models.Identity, electionID uint64) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{Op: models.OpStartVoting, Caller: caller, Ballot: &ref})
}

func (vs *VotingService) EndVoting(ctx context.Context, caller models.Identity, electionID uint64) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{Op: models.OpEndVoting, Caller: caller, Ballot: &ref})
}

func (vs *VotingService) Vote(ctx context.Context, caller models.Identity, electionID, candidateID uint64) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{Op: models.OpCastVote, Caller: caller, Ballot: &ref, Candidate: candidateID})
}

func (vs *VotingService) CommitVote(ctx context.Context, caller models.Identity, electionID uint64, commitment common.Hash) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{Op: models.OpCommitVote, Caller: caller, Ballot: &ref, Commitment: &commitment})
}

func (vs *VotingService) RevealVote(ctx context.Context, caller models.Identity, electionID, candidateID uint64, salt string) (*models.Receipt, error) {
	ref := electionRef(electionID)
	return vs.execute(ctx, models.Entry{
		Op:        models.OpRevealVote,
		Caller:    caller,
		Ballot:    &ref,
		Candidate: candidateID,
		Salt:      salt,
	})
}

func (vs *VotingService) CreateCase(ctx context.Context, caller models.Identity, description string, durationSeconds int64) (uint64, *models.Receipt, error) {
	r, err := vs.execute(ctx, models.Entry{
		Op:              models.OpCreateCase,
		Caller:          caller,
		Text:            description,
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return 0, nil, err
	}
	return r.Ballot.ID, r, nil
}

func (vs *VotingService) SubmitVote(ctx context.Context, caller models.Identity, caseID uint64, approve bool, token common.Hash) (*models.Receipt, error) {
	ref := caseRef(caseID)
	return vs.execute(ctx, models.Entry{
		Op:      models.OpSubmitVote,
		Caller:  caller,
		Ballot:  &ref,
		Approve: approve,
		Token:   &token,
	})
}

func (vs *VotingService) ResolveCase(ctx context.Context, caller models.Identity, caseID uint64) (*models.Receipt, error) {
	ref := caseRef(caseID)
	return vs.execute(ctx, models.Entry{Op: models.OpResolveCase, Caller: caller, Ballot: &ref})
}

func (vs *VotingService) IsAdministrator(id models.Identity) bool {
	return vs.registry.IsAdministrator(id)
}

func (vs *VotingService) IsEligibleVoter(id models.Identity) bool {
	return vs.registry.IsEligibleVoter(id)
}

func (vs *VotingService) IsBoardMember(id models.Identity) bool {
	return vs.registry.IsBoardMember(id)
}

func (vs *VotingService) Roles(id models.Identity) models.Roles {
	return vs.registry.Roles(id)
}

func (vs *VotingService) Administrators() []models.Identity {
	return vs.registry.Administrators()
}

func (vs *VotingService) BoardMembers() []models.Identity {
	return vs.registry.BoardMembers()
}

func (vs *VotingService) Voters() []models.Identity {
	return vs.registry.Voters()
}

func (vs *VotingService) GetElection(id uint64) (models.Election, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ballots.Election(id)
}

func (vs *VotingService) Elections() []models.Election {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ballots.Elections()
}

func (vs *VotingService) CandidatesCount(electionID uint64) (int, error) {
	e, err := vs.GetElection(electionID)
	if err != nil {
		return 0, err
	}
	return len(e.Candidates), nil
}

func (vs *VotingService) GetVoteCount(electionID, candidateID uint64) (uint64, error) {
	e, err := vs.GetElection(electionID)
	if err != nil {
		return 0, err
	}
	if candidateID >= uint64(len(e.Candidates)) {
		return 0, models.ErrInvalidCandidate.Errorf("election %d has no candidate %d", electionID, candidateID)
	}
	return e.Candidates[candidateID].VoteCount, nil
}

func (vs *VotingService) TotalVotes(electionID uint64) (uint64, error) {
	e, err := vs.GetElection(electionID)
	if err != nil {
		return 0, err
	}
	return e.TotalVotes(), nil
}

// GetAllResults returns candidate names and their counts in candidate order.
func (vs *VotingService) GetAllResults(electionID uint64) ([]string, []uint64, error) {
	r, err := vs.ElectionResults(electionID)
	if err != nil {
		return nil, nil, err
	}
	return r.Names, r.Counts, nil
}

func (vs *VotingService) ElectionResults(electionID uint64) (*ElectionResult, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.counting.ElectionResults(electionID)
}

func (vs *VotingService) GetCase(id uint64) (models.Case, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ballots.Case(id)
}

func (vs *VotingService) Cases() []models.Case {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ballots.Cases()
}

func (vs *VotingService) CasesCount() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ballots.CasesCount()
}

func (vs *VotingService) HasVoted(electionID uint64, voter models.Identity) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.HasVoted(electionRef(electionID), voter)
}

func (vs *VotingService) HasVoterVoted(voter models.Identity, caseID uint64) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.HasVoted(caseRef(caseID), voter)
}

func (vs *VotingService) VoteRecords(ref models.BallotRef) []models.VoteRecord {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.Records(ref)
}

func (vs *VotingService) TokenUsed(token common.Hash) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.TokenUsed(token)
}

func (vs *VotingService) Commitment(electionID uint64, voter models.Identity) common.Hash {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.commits.Commitment(electionID, voter)
}

func (vs *VotingService) Commitments(electionID uint64) ([]models.Commitment, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if _, err := vs.ballots.election(electionID); err != nil {
		return nil, err
	}
	return vs.commits.Commitments(electionID), nil
}

func (vs *VotingService) Audit() *AuditReport {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.counting.Audit(vs.blocks)
}

func (vs *VotingService) Journal() []*models.Block {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	out := make([]*models.Block, len(vs.blocks))
	copy(out, vs.blocks)
	return out
}

// Snapshot is a full export of the query state.
type Snapshot struct {
	Sequence       uint64                         `json:"sequence"`
	LastHash       string                         `json:"last_hash"`
	Administrators []models.Identity              `json:"administrators"`
	BoardMembers   []models.Identity              `json:"board_members"`
	Voters         []models.Identity              `json:"voters"`
	Elections      []models.Election              `json:"elections"`
	Cases          []models.Case                  `json:"cases"`
	Records        []models.VoteRecord            `json:"records"`
	Commitments    map[uint64][]models.Commitment `json:"commitments"`
}

func (vs *VotingService) Snapshot() *Snapshot {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	s := &Snapshot{
		Sequence:       uint64(len(vs.blocks)),
		Administrators: vs.registry.Administrators(),
		BoardMembers:   vs.registry.BoardMembers(),
		Voters:         vs.registry.Voters(),
		Elections:      vs.ballots.Elections(),
		Cases:          vs.ballots.Cases(),
		Records:        []models.VoteRecord{},
		Commitments:    make(map[uint64][]models.Commitment),
	}

	if n := len(vs.blocks); n > 0 {
		s.LastHash = common.Bytes2Hex(vs.blocks[n-1].Hash)
	}

	for _, e := range s.Elections {
		s.Records = append(s.Records, vs.ledger.Records(electionRef(e.ID))...)
		s.Commitments[e.ID] = vs.commits.Commitments(e.ID)
	}
	for _, c := range s.Cases {
		s.Records = append(s.Records, vs.ledger.Records(caseRef(c.ID))...)
	}

	return s
}
