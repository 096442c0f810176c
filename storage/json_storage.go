package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"ballot-backend/models"
)

const journalFile = "journal_chain.json"

// Chain is the on-disk layout of the JSON driver.
type Chain struct {
	Blocks []*models.Block `json:"blocks"`
}

type JSONStore struct {
	basePath string
	mu       sync.RWMutex
	chain    *Chain
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}

	store := &JSONStore{basePath: basePath}

	chain, err := store.loadChainFromFile()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load journal")
	}
	store.chain = chain

	return store, nil
}

func (s *JSONStore) Path() string {
	return filepath.Join(s.basePath, journalFile)
}

func (s *JSONStore) Append(_ context.Context, block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkNext(uint64(len(s.chain.Blocks)), block); err != nil {
		return err
	}

	next := &Chain{Blocks: append(s.chain.Blocks[:len(s.chain.Blocks):len(s.chain.Blocks)], block)}
	if err := s.saveChainToFile(next); err != nil {
		return err
	}
	s.chain = next

	return nil
}

func (s *JSONStore) Load(context.Context) ([]*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]*models.Block, len(s.chain.Blocks))
	copy(blocks, s.chain.Blocks)
	return blocks, nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) loadChainFromFile() (*Chain, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Chain{Blocks: make([]*models.Block, 0)}, nil
		}
		return nil, err
	}

	var chain Chain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chain")
	}

	return &chain, nil
}

func (s *JSONStore) saveChainToFile(chain *Chain) error {
	path := s.Path()

	data, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal chain")
	}

	// Write to temporary file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write chain file")
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to save chain file")
	}

	return nil
}
