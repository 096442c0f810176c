package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"
	leveldbutil "github.com/syndtr/goleveldb/leveldb/util"

	"ballot-backend/models"
)

var keyPrefixJournal = []byte{0x00, 0x01}

type LevelDBStore struct {
	mu   sync.Mutex
	db   *leveldb.DB
	next uint64
}

func OpenLevelDB(dataDir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(filepath.Join(dataDir, "journal.ldb"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open leveldb")
	}
	return NewLevelDBStore(db)
}

// NewMemLevelDB keeps the journal in memory only.
func NewMemLevelDB() *LevelDBStore {
	db, _ := leveldb.Open(leveldbStorage.NewMemStorage(), nil)
	st, _ := NewLevelDBStore(db)
	return st
}

func NewLevelDBStore(db *leveldb.DB) (*LevelDBStore, error) {
	st := &LevelDBStore{db: db}

	iter := db.NewIterator(leveldbutil.BytesPrefix(keyPrefixJournal), nil)
	defer iter.Release()

	if iter.Last() {
		st.next = indexFromKey(iter.Key()) + 1
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to scan journal")
	}

	return st, nil
}

func leveldbJournalKey(index uint64) []byte {
	k := make([]byte, len(keyPrefixJournal)+8)
	copy(k, keyPrefixJournal)
	binary.BigEndian.PutUint64(k[len(keyPrefixJournal):], index)
	return k
}

func indexFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(keyPrefixJournal):])
}

func (st *LevelDBStore) Append(_ context.Context, block *models.Block) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := checkNext(st.next, block); err != nil {
		return err
	}

	b, err := json.Marshal(block)
	if err != nil {
		return errors.Wrap(err, "failed to marshal block")
	}

	if err := st.db.Put(leveldbJournalKey(block.Index), b, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrapf(err, "failed to put block %d", block.Index)
	}
	st.next++

	return nil
}

func (st *LevelDBStore) Load(context.Context) ([]*models.Block, error) {
	iter := st.db.NewIterator(leveldbutil.BytesPrefix(keyPrefixJournal), nil)
	defer iter.Release()

	var blocks []*models.Block
	for iter.Next() {
		var block models.Block
		if err := json.Unmarshal(iter.Value(), &block); err != nil {
			return nil, errors.Wrapf(err, "failed to decode block %d", indexFromKey(iter.Key()))
		}
		blocks = append(blocks, &block)
	}

	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate journal")
	}

	return blocks, nil
}

func (st *LevelDBStore) DB() *leveldb.DB {
	return st.db
}

func (st *LevelDBStore) Close() error {
	return st.db.Close()
}
