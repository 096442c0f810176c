package registry

import (
	"sync"

	"ballot-backend/models"
)

// Registry tracks role flags per identity. Administrators and board members
// are fixed by Seed; afterwards only the eligible-voter flag can be granted.
type Registry struct {
	mu      sync.RWMutex
	roles   map[models.Identity]*models.Roles
	granted map[models.Identity]uint64 // journal sequence of the eligibility grant
	seeded  bool
}

func New() *Registry {
	return &Registry{
		roles:   make(map[models.Identity]*models.Roles),
		granted: make(map[models.Identity]uint64),
	}
}

// ValidateGenesis checks the configured role sets before they are journaled.
func ValidateGenesis(g models.Genesis) error {
	if len(g.Administrators) == 0 {
		return models.ErrInvalidGenesis.Errorf("at least one administrator is required")
	}
	if len(g.BoardMembers) == 0 {
		return models.ErrInvalidGenesis.Errorf("at least one board member is required")
	}

	zero := models.Identity{}
	for _, set := range [][]models.Identity{g.Administrators, g.BoardMembers, g.Voters} {
		seen := make(map[models.Identity]bool, len(set))
		for _, id := range set {
			if id == zero {
				return models.ErrInvalidGenesis.Errorf("zero address in genesis")
			}
			if seen[id] {
				return models.ErrInvalidGenesis.Errorf("duplicate identity %s in genesis", id.Hex())
			}
			seen[id] = true
		}
	}

	return nil
}

// Seed installs the genesis roles. It can only run once.
func (r *Registry) Seed(g models.Genesis, seq uint64) error {
	if err := ValidateGenesis(g); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seeded {
		return models.ErrInvalidGenesis.Errorf("registry already seeded")
	}

	for _, id := range g.Administrators {
		r.rolesOf(id).Administrator = true
	}
	for _, id := range g.BoardMembers {
		r.rolesOf(id).BoardMember = true
	}
	for _, id := range g.Voters {
		r.rolesOf(id).EligibleVoter = true
		r.granted[id] = seq
	}
	r.seeded = true

	return nil
}

func (r *Registry) Seeded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seeded
}

// CanRegister checks an administrator registration of target.
func (r *Registry) CanRegister(caller, target models.Identity) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.has(caller, func(ro *models.Roles) bool { return ro.Administrator }) {
		return models.ErrUnauthorized.Errorf("%s is not an administrator", caller.Hex())
	}
	if r.has(target, func(ro *models.Roles) bool { return ro.EligibleVoter }) {
		return models.ErrAlreadyRegistered.Errorf("voter %s already registered", target.Hex())
	}

	return nil
}

// CanVerify checks a board verification. Verifying an eligible voter again
// is allowed and is a no-op.
func (r *Registry) CanVerify(caller models.Identity) error {
	if !r.IsBoardMember(caller) {
		return models.ErrUnauthorized.Errorf("%s is not a board member", caller.Hex())
	}
	return nil
}

// Grant marks target as an eligible voter. It reports false when the flag was
// already set, leaving the original grant untouched.
func (r *Registry) Grant(target models.Identity, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ro := r.rolesOf(target)
	if ro.EligibleVoter {
		return false
	}
	ro.EligibleVoter = true
	r.granted[target] = seq

	return true
}

// GrantedAt returns the journal sequence where target became eligible.
func (r *Registry) GrantedAt(target models.Identity) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seq, found := r.granted[target]
	return seq, found
}

func (r *Registry) IsAdministrator(id models.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(id, func(ro *models.Roles) bool { return ro.Administrator })
}

func (r *Registry) IsEligibleVoter(id models.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(id, func(ro *models.Roles) bool { return ro.EligibleVoter })
}

func (r *Registry) IsBoardMember(id models.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(id, func(ro *models.Roles) bool { return ro.BoardMember })
}

// Roles returns a copy of the flags of id. Unknown identities have none.
func (r *Registry) Roles(id models.Identity) models.Roles {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ro, found := r.roles[id]; found {
		return *ro
	}
	return models.Roles{}
}

func (r *Registry) Administrators() []models.Identity {
	return r.collect(func(ro *models.Roles) bool { return ro.Administrator })
}

func (r *Registry) BoardMembers() []models.Identity {
	return r.collect(func(ro *models.Roles) bool { return ro.BoardMember })
}

func (r *Registry) Voters() []models.Identity {
	return r.collect(func(ro *models.Roles) bool { return ro.EligibleVoter })
}

func (r *Registry) collect(f func(*models.Roles) bool) []models.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]models.Identity, 0)
	for id, ro := range r.roles {
		if f(ro) {
			ids = append(ids, id)
		}
	}
	models.SortIdentities(ids)

	return ids
}

func (r *Registry) has(id models.Identity, f func(*models.Roles) bool) bool {
	ro, found := r.roles[id]
	return found && f(ro)
}

func (r *Registry) rolesOf(id models.Identity) *models.Roles {
	ro, found := r.roles[id]
	if !found {
		ro = &models.Roles{}
		r.roles[id] = ro
	}
	return ro
}
