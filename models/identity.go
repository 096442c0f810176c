package models

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an opaque principal. Callers are addressed the same way the
// hospital wallets are: by a 20 byte account address.
type Identity = common.Address

// Roles holds the flags attached to one identity. Flags are only ever added.
type Roles struct {
	Administrator bool `json:"administrator"`
	EligibleVoter bool `json:"eligible_voter"`
	BoardMember   bool `json:"board_member"`
}

// ParseIdentity accepts a hex address with or without the 0x prefix.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Identity{}, fmt.Errorf("invalid identity %q: must be a 20 byte hex address", s)
	}

	id := common.HexToAddress(s)
	if id == (Identity{}) {
		return Identity{}, fmt.Errorf("invalid identity %q: zero address", s)
	}

	return id, nil
}

// ParseIdentities parses every entry and rejects duplicates.
func ParseIdentities(ss []string) ([]Identity, error) {
	seen := make(map[Identity]bool, len(ss))
	ids := make([]Identity, 0, len(ss))
	for _, s := range ss {
		id, err := ParseIdentity(s)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate identity %s", id.Hex())
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

// SortIdentities orders identities by their byte value.
func SortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
