package registry

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/models"
)

func addr(n int) models.Identity {
	return common.HexToAddress(fmt.Sprintf("0x%040x", n))
}

func seeded(t *testing.T) *Registry {
	t.Helper()

	r := New()
	require.NoError(t, r.Seed(models.Genesis{
		Administrators: []models.Identity{addr(1)},
		BoardMembers:   []models.Identity{addr(2), addr(3)},
		Voters:         []models.Identity{addr(10)},
	}, 0))
	return r
}

func TestSeed(t *testing.T) {
	r := seeded(t)

	assert.True(t, r.Seeded())
	assert.True(t, r.IsAdministrator(addr(1)))
	assert.False(t, r.IsAdministrator(addr(2)))
	assert.True(t, r.IsBoardMember(addr(2)))
	assert.True(t, r.IsEligibleVoter(addr(10)))
	assert.False(t, r.IsEligibleVoter(addr(99)))
	assert.Equal(t, []models.Identity{addr(2), addr(3)}, r.BoardMembers())

	err := r.Seed(models.Genesis{
		Administrators: []models.Identity{addr(4)},
		BoardMembers:   []models.Identity{addr(4)},
	}, 1)
	assert.True(t, errors.Is(err, models.ErrInvalidGenesis))
	assert.False(t, r.IsAdministrator(addr(4)))
}

func TestValidateGenesis(t *testing.T) {
	cases := []struct {
		name string
		g    models.Genesis
	}{
		{"no administrators", models.Genesis{BoardMembers: []models.Identity{addr(1)}}},
		{"no board", models.Genesis{Administrators: []models.Identity{addr(1)}}},
		{"zero address", models.Genesis{
			Administrators: []models.Identity{{}},
			BoardMembers:   []models.Identity{addr(1)},
		}},
		{"duplicate board member", models.Genesis{
			Administrators: []models.Identity{addr(1)},
			BoardMembers:   []models.Identity{addr(2), addr(2)},
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, errors.Is(ValidateGenesis(c.g), models.ErrInvalidGenesis))
		})
	}
}

func TestCanRegister(t *testing.T) {
	r := seeded(t)

	assert.NoError(t, r.CanRegister(addr(1), addr(20)))
	assert.True(t, errors.Is(r.CanRegister(addr(2), addr(20)), models.ErrUnauthorized))
	assert.True(t, errors.Is(r.CanRegister(addr(1), addr(10)), models.ErrAlreadyRegistered))
}

func TestGrant(t *testing.T) {
	r := seeded(t)

	assert.True(t, r.Grant(addr(20), 5))
	assert.False(t, r.Grant(addr(20), 9))

	seq, found := r.GrantedAt(addr(20))
	assert.True(t, found)
	assert.Equal(t, uint64(5), seq)

	assert.True(t, r.IsEligibleVoter(addr(20)))
	assert.Equal(t, models.Roles{EligibleVoter: true}, r.Roles(addr(20)))
	assert.Equal(t, []models.Identity{addr(10), addr(20)}, r.Voters())
}

func TestCanVerify(t *testing.T) {
	r := seeded(t)

	assert.NoError(t, r.CanVerify(addr(2)))
	assert.True(t, errors.Is(r.CanVerify(addr(1)), models.ErrUnauthorized))
}
