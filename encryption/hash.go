package encryption

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func uint256Bytes(v uint64) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

// CommitmentHash binds a candidate choice to a salt. The layout matches
// solidity's abi.encodePacked(uint256 choice, string salt).
func CommitmentHash(candidate uint64, salt string) common.Hash {
	return crypto.Keccak256Hash(uint256Bytes(candidate), []byte(salt))
}

// NullifierHash derives a single-use anti-replay token from the voter, the case
// and a private salt, laid out as abi.encodePacked(address, uint256, string).
func NullifierHash(voter common.Address, caseID uint64, salt string) common.Hash {
	return crypto.Keccak256Hash(voter.Bytes(), uint256Bytes(caseID), []byte(salt))
}

// GenerateSalt returns 16 random bytes, hex encoded.
func GenerateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random salt: %w", err)
	}
	return hexutil.Encode(b), nil
}

// ParseHash decodes a 32 byte hex hash.
func ParseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
