package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"ballot-backend/logging"
)

const (
	snapshotPattern = "ballot_snapshot_*.json"
	snapshotLayout  = "20060102150405.000000000"
)

// SnapshotStorage writes timestamped JSON exports of the query state and
// keeps only the newest ones.
type SnapshotStorage struct {
	*logging.Logging
	dataDir string
	keep    int
	mutex   sync.RWMutex
	now     func() time.Time
}

type snapshotFile struct {
	path      string
	timestamp time.Time
}

type snapshotFiles []snapshotFile

func (f snapshotFiles) Len() int           { return len(f) }
func (f snapshotFiles) Less(i, j int) bool { return f[i].timestamp.Before(f[j].timestamp) }
func (f snapshotFiles) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func NewSnapshotStorage(dataDir string, keep int) (*SnapshotStorage, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path")
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create snapshot directory")
	}

	if keep < 1 {
		keep = 1
	}

	return &SnapshotStorage{
		Logging: logging.NewLogging(logging.Module("snapshot-storage")),
		dataDir: absPath,
		keep:    keep,
		now:     time.Now,
	}, nil
}

func (s *SnapshotStorage) files() (snapshotFiles, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, snapshotPattern))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshots")
	}

	var files snapshotFiles
	for _, file := range matches {
		base := filepath.Base(file)
		ts := strings.TrimSuffix(strings.TrimPrefix(base, "ballot_snapshot_"), ".json")

		t, err := time.Parse(snapshotLayout, ts)
		if err != nil {
			s.Log().Warn().Err(err).Str("file", base).Msg("invalid timestamp in snapshot filename")
			continue
		}
		files = append(files, snapshotFile{path: file, timestamp: t})
	}

	sort.Sort(files)
	return files, nil
}

// Save encodes v into a new snapshot file and returns its path.
func (s *SnapshotStorage) Save(v interface{}) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	timestamp := s.now().UTC().Format(snapshotLayout)
	filename := filepath.Join(s.dataDir, fmt.Sprintf("ballot_snapshot_%s.json", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", errors.Wrap(err, "failed to create snapshot")
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(v); err != nil {
		return "", errors.Wrap(err, "failed to encode snapshot")
	}

	if err := s.cleanupOldFiles(); err != nil {
		s.Log().Warn().Err(err).Msg("failed to cleanup old snapshots")
	}

	s.Log().Debug().Str("file", filename).Msg("saved snapshot")
	return filename, nil
}

// LoadLatest decodes the newest snapshot into v. It reports false when no
// snapshot exists.
func (s *SnapshotStorage) LoadLatest(v interface{}) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	files, err := s.files()
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}

	latest := files[len(files)-1].path
	file, err := os.Open(latest)
	if err != nil {
		return false, errors.Wrapf(err, "failed to open snapshot %s", latest)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return false, errors.Wrapf(err, "failed to decode snapshot %s", latest)
	}

	return true, nil
}

func (s *SnapshotStorage) List() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	files, err := s.files()
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].path
	}
	return paths, nil
}

func (s *SnapshotStorage) cleanupOldFiles() error {
	files, err := s.files()
	if err != nil {
		return err
	}

	if len(files) <= s.keep {
		return nil
	}

	for i := 0; i < len(files)-s.keep; i++ {
		if err := os.Remove(files[i].path); err != nil {
			s.Log().Warn().Err(err).Str("file", files[i].path).Msg("failed to remove old snapshot")
		}
	}

	return nil
}
