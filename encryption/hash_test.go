package encryption

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitmentHash(t *testing.T) {
	// keccak256(abi.encodePacked(uint256(1), "abc"))
	assert.Equal(t,
		common.HexToHash("0x0825eb20bb1db47b2468e52d35040f413a6e67478c16cc591d9e3d5c4f45aaee"),
		CommitmentHash(1, "abc"),
	)
	assert.Equal(t,
		common.HexToHash("0x1d8287630b05a95a25198c77b39f7e45b957d3532e020ad233a36c9a4e0ab40c"),
		CommitmentHash(0, "randomSalt123"),
	)
	assert.NotEqual(t, CommitmentHash(1, "abc"), CommitmentHash(1, "abd"))
	assert.NotEqual(t, CommitmentHash(1, "abc"), CommitmentHash(2, "abc"))
}

func TestNullifierHash(t *testing.T) {
	voter := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	assert.Equal(t,
		common.HexToHash("0x23923a000b8c799a605aac1e5172e1f4a4a564445246cd64cd98fbe6970c947a"),
		NullifierHash(voter, 0, "salt"),
	)
	assert.NotEqual(t, NullifierHash(voter, 0, "salt"), NullifierHash(voter, 1, "salt"))
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash("0x0825eb20bb1db47b2468e52d35040f413a6e67478c16cc591d9e3d5c4f45aaee")
	require.NoError(t, err)
	assert.Equal(t, CommitmentHash(1, "abc"), h)

	_, err = ParseHash("0x1234")
	assert.Error(t, err)

	_, err = ParseHash("zz")
	assert.Error(t, err)
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, a, 34)
	assert.NotEqual(t, a, b)
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin_credentials.json")

	key, created, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, Address(key), Address(again))

	creds := NewCredentials(key)
	assert.Equal(t, Address(key).Hex(), creds.Address)
}
