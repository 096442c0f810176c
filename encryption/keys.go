package encryption

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type Credentials struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func NewCredentials(key *ecdsa.PrivateKey) Credentials {
	return Credentials{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}
}

// LoadOrGenerateKey restores the key stored at path, or generates one and
// stores it with owner-only permissions.
func LoadOrGenerateKey(path string) (*ecdsa.PrivateKey, bool, error) {
	if data, err := os.ReadFile(path); err == nil {
		var creds Credentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, false, fmt.Errorf("failed to parse credentials: %w", err)
		}

		key, err := ParsePrivateKey(creds.PrivateKey)
		if err != nil {
			return nil, false, fmt.Errorf("failed to restore private key: %w", err)
		}
		return key, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read credentials: %w", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate key: %w", err)
	}

	data, err := json.MarshalIndent(NewCredentials(key), "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, false, fmt.Errorf("failed to save credentials: %w", err)
	}

	return key, true, nil
}

func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// Address returns the identity controlled by key.
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
