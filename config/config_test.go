package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/models"
	"ballot-backend/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, storage.KindJSON, cfg.Driver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.SnapshotKeep)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/ballot
driver: leveldb
kafka_brokers:
  - kafka-1:9092
  - kafka-2:9092
log_format: json
`), 0644))

	t.Setenv("BALLOT_LOG_LEVEL", "debug")
	t.Setenv("BALLOT_QUEUE_SIZE", "32")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ballot", cfg.DataDir)
	assert.Equal(t, storage.KindLevelDB, cfg.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 32, cfg.QueueSize)

	opts := cfg.StorageOptions()
	assert.Equal(t, storage.KindLevelDB, opts.Kind)
	assert.Equal(t, "/var/lib/ballot", opts.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DataDir:      "d",
			Driver:       storage.KindJSON,
			LogLevel:     "info",
			LogFormat:    "json",
			SnapshotKeep: 1,
			QueueSize:    1,
			KafkaTopic:   "t",
		}
	}

	require.NoError(t, base().Validate())

	for name, mutate := range map[string]func(*Config){
		"driver":    func(c *Config) { c.Driver = "bolt" },
		"data dir":  func(c *Config) { c.DataDir = "" },
		"redis":     func(c *Config) { c.Driver = storage.KindRedis; c.RedisURL = "" },
		"level":     func(c *Config) { c.LogLevel = "loud" },
		"format":    func(c *Config) { c.LogFormat = "xml" },
		"kafka":     func(c *Config) { c.KafkaBrokers = []string{"k:9092"}; c.KafkaTopic = "" },
		"snapshots": func(c *Config) { c.SnapshotKeep = 0 },
		"queue":     func(c *Config) { c.QueueSize = 0 },
	} {
		c := base()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestParseGenesis(t *testing.T) {
	g, err := ParseGenesis([]byte(`
administrators:
  - 0x00000000000000000000000000000000000000a1
board_members:
  - 0x00000000000000000000000000000000000000b1
  - 0x00000000000000000000000000000000000000b2
voters:
  - 0x00000000000000000000000000000000000000c1
`))
	require.NoError(t, err)

	require.Len(t, g.Administrators, 1)
	assert.Equal(t, byte(0xa1), g.Administrators[0][19])
	assert.Len(t, g.BoardMembers, 2)
	assert.Len(t, g.Voters, 1)

	b, err := MarshalGenesis(g)
	require.NoError(t, err)

	again, err := ParseGenesis(b)
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestParseGenesisInvalid(t *testing.T) {
	_, err := ParseGenesis([]byte("administrators: [0x00000000000000000000000000000000000000a1]\n"))
	assert.ErrorIs(t, err, models.ErrInvalidGenesis)

	_, err = ParseGenesis([]byte("administrators: [nope]\nboard_members: [0x00000000000000000000000000000000000000b1]\n"))
	assert.Error(t, err)

	_, err = ParseGenesis([]byte("administrators: {"))
	assert.Error(t, err)
}

func TestLoadGenesis(t *testing.T) {
	_, err := LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
