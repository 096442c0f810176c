package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T, n int) []*Block {
	t.Helper()

	blocks := make([]*Block, 0, n)
	prev := GenesisPrevHash()
	for i := 0; i < n; i++ {
		b := NewBlock(uint64(i), int64(1000+i), []byte(`{"op":"genesis"}`), prev)
		blocks = append(blocks, b)
		prev = b.Hash
	}
	return blocks
}

func TestValidateChain(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, ValidateChain(nil))
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateChain(buildChain(t, 5)))
	})

	t.Run("tampered data", func(t *testing.T) {
		blocks := buildChain(t, 3)
		blocks[1].Data = []byte(`{"op":"resolve_case"}`)

		err := ValidateChain(blocks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "block 1 has invalid hash")
	})

	t.Run("rehashed block breaks link", func(t *testing.T) {
		blocks := buildChain(t, 3)
		blocks[1] = NewBlock(1, blocks[1].Timestamp, []byte(`{"op":"cast_vote"}`), blocks[0].Hash)

		err := ValidateChain(blocks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "block 2 has invalid previous hash link")
	})

	t.Run("gap in index", func(t *testing.T) {
		blocks := buildChain(t, 3)
		blocks = append(blocks[:1], blocks[2:]...)

		assert.Error(t, ValidateChain(blocks))
	})
}

func TestBlockEntryRoundTrip(t *testing.T) {
	e := Entry{Op: OpCreateCase, Text: "Approve drug trial?", DurationSeconds: 3600}
	data, err := e.Marshal()
	require.NoError(t, err)

	b := NewBlock(0, 1, data, GenesisPrevHash())
	got, err := b.Entry()
	require.NoError(t, err)
	assert.Equal(t, e.Op, got.Op)
	assert.Equal(t, e.Text, got.Text)
	assert.Equal(t, e.DurationSeconds, got.DurationSeconds)
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("0x00000000000000000000000000000000000000a1")
	require.NoError(t, err)
	assert.Equal(t, byte(0xa1), id[19])

	_, err = ParseIdentity("not-an-address")
	assert.Error(t, err)

	_, err = ParseIdentity("0x0000000000000000000000000000000000000000")
	assert.Error(t, err)

	_, err = ParseIdentities([]string{
		"0x00000000000000000000000000000000000000a1",
		"0x00000000000000000000000000000000000000A1",
	})
	assert.Error(t, err)
}
