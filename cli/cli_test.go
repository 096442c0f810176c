package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/encryption"
	"ballot-backend/models"
)

type harness struct {
	t       *testing.T
	dataDir string
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, dataDir: t.TempDir()}
}

func (h *harness) exec(args ...string) (string, error) {
	cmd := NewRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--data-dir", h.dataDir, "--log-format", "json"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) ok(v interface{}, args ...string) {
	out, err := h.exec(args...)
	require.NoError(h.t, err, "ballot %v", args)
	if v != nil {
		require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
	}
}

func (h *harness) keyFile(name string) (string, models.Identity) {
	path := filepath.Join(h.dataDir, name)

	var creds encryption.Credentials
	h.ok(&creds, "keygen", "--out", path)

	id, err := models.ParseIdentity(creds.Address)
	require.NoError(h.t, err)

	return path, id
}

func TestInitGeneratesAdministrator(t *testing.T) {
	h := newHarness(t)

	var out struct {
		Receipt models.Receipt `json:"receipt"`
		Genesis models.Genesis `json:"genesis"`
	}
	h.ok(&out, "init")

	assert.Equal(t, models.OpGenesis, out.Receipt.Op)
	assert.Equal(t, uint64(0), out.Receipt.Sequence)
	require.Len(t, out.Genesis.Administrators, 1)

	_, admin := h.keyFile(adminKeyFile)
	assert.Equal(t, admin, out.Genesis.Administrators[0])

	var roles models.Roles
	h.ok(&roles, "roles", admin.Hex())
	assert.True(t, roles.Administrator)
	assert.True(t, roles.BoardMember)

	_, err := h.exec("init")
	assert.Error(t, err)
}

func TestInitFromGenesisFile(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(h.dataDir, "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
administrators: [0x00000000000000000000000000000000000000a1]
board_members: [0x00000000000000000000000000000000000000b1]
voters: [0x00000000000000000000000000000000000000c1]
`), 0644))

	h.ok(nil, "init", "--genesis", path)

	var roles models.Roles
	h.ok(&roles, "roles", "0x00000000000000000000000000000000000000c1")
	assert.True(t, roles.EligibleVoter)
	assert.False(t, roles.BoardMember)
}

func TestCommandsNeedCaller(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("election", "create", "chair")
	assert.Error(t, err)
}

func TestElectionFlow(t *testing.T) {
	h := newHarness(t)
	h.ok(nil, "init")

	alice, aliceID := h.keyFile("alice.key")
	bob, bobID := h.keyFile("bob.key")

	h.ok(nil, "register-voter", aliceID.Hex())
	h.ok(nil, "register-voter", bobID.Hex())

	var created struct {
		ElectionID uint64 `json:"election_id"`
	}
	h.ok(&created, "election", "create", "Board chair")
	assert.Equal(t, uint64(0), created.ElectionID)

	h.ok(nil, "election", "add-candidate", "0", "Alice")
	h.ok(nil, "election", "add-candidate", "0", "Bob")
	h.ok(nil, "election", "start", "0")

	h.ok(nil, "--key", alice, "election", "vote", "0", "0")

	var committed struct {
		Salt string `json:"salt"`
	}
	h.ok(&committed, "--key", bob, "election", "commit", "0", "1")
	require.NotEmpty(t, committed.Salt)

	_, err := h.exec("--key", alice, "election", "vote", "0", "1")
	assert.Error(t, err)

	h.ok(nil, "election", "end", "0")
	h.ok(nil, "--key", bob, "election", "reveal", "0", "1", committed.Salt)

	var results struct {
		Names   []string `json:"names"`
		Counts  []uint64 `json:"counts"`
		Winners []string `json:"winners"`
	}
	h.ok(&results, "election", "results", "0")
	assert.Equal(t, []string{"Alice", "Bob"}, results.Names)
	assert.Equal(t, []uint64{1, 1}, results.Counts)
	assert.Equal(t, []string{"Alice", "Bob"}, results.Winners)

	var audit struct {
		ChainValid bool `json:"chain_valid"`
		Valid      bool `json:"valid"`
	}
	h.ok(&audit, "audit")
	assert.True(t, audit.ChainValid)
	assert.True(t, audit.Valid)
}

func TestCaseFlow(t *testing.T) {
	h := newHarness(t)
	h.ok(nil, "init")

	alice, aliceID := h.keyFile("alice.key")
	h.ok(nil, "register-voter", aliceID.Hex())
	h.ok(nil, "verify-voter", aliceID.Hex())

	var created struct {
		CaseID uint64 `json:"case_id"`
	}
	h.ok(&created, "case", "create", "Phase II trial", "--duration", "1h")

	var voted struct {
		Token string `json:"token"`
	}
	h.ok(&voted, "--key", alice, "case", "vote", "0", "yes", "--salt", "s1")
	assert.Equal(t, encryption.NullifierHash(aliceID, 0, "s1").Hex(), voted.Token)

	_, err := h.exec("--key", alice, "case", "vote", "0", "no", "--salt", "s2")
	assert.Error(t, err)

	_, err = h.exec("case", "resolve", "0")
	assert.Error(t, err)

	var c models.Case
	h.ok(&c, "case", "show", "0")
	assert.Equal(t, uint64(1), c.YesVotes)
	assert.True(t, c.Active)

	var cases []models.Case
	h.ok(&cases, "case", "list")
	assert.Len(t, cases, 1)

	_, err = h.exec("case", "vote", "0", "maybe", "--salt", "x")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.ok(nil, "init")

	var out struct {
		Path     string `json:"path"`
		Sequence uint64 `json:"sequence"`
	}
	h.ok(&out, "export")

	assert.Equal(t, uint64(1), out.Sequence)
	assert.FileExists(t, out.Path)
	assert.Equal(t, filepath.Join(h.dataDir, "snapshots"), filepath.Dir(out.Path))
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(h.dataDir, "ballot.prom")
	t.Setenv("BALLOT_METRICS_FILE", path)

	h.ok(nil, "init")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ballot_operations_total")
}

func TestHashCommands(t *testing.T) {
	h := newHarness(t)

	var hash string
	h.ok(&hash, "hash", "commitment", "1", "abc")
	assert.Equal(t, encryption.CommitmentHash(1, "abc").Hex(), hash)

	h.ok(&hash, "hash", "nullifier", "0x00000000000000000000000000000000000000a1", "0", "salt")
	assert.Equal(t, "0x23923a", hash[:8])
}
