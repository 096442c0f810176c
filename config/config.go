package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"ballot-backend/logging"
	"ballot-backend/storage"
)

const EnvPrefix = "BALLOT"

type Config struct {
	DataDir      string   `mapstructure:"data_dir"`
	Driver       string   `mapstructure:"driver"`
	RedisURL     string   `mapstructure:"redis_url"`
	RedisKey     string   `mapstructure:"redis_key"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	LogLevel     string   `mapstructure:"log_level"`
	LogFormat    string   `mapstructure:"log_format"`
	MetricsFile  string   `mapstructure:"metrics_file"`
	SnapshotKeep int      `mapstructure:"snapshot_keep"`
	QueueSize    int      `mapstructure:"queue_size"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("driver", storage.KindJSON)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_key", storage.DefaultRedisKey)
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "ballot-events")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "terminal")
	v.SetDefault("metrics_file", "")
	v.SetDefault("snapshot_keep", 5)
	v.SetDefault("queue_size", 256)
}

// Load merges defaults, the config file (if any), BALLOT_* environment
// variables and whatever flags were bound on v.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Driver {
	case storage.KindJSON, storage.KindLevelDB:
		if c.DataDir == "" {
			return errors.Errorf("driver %s needs a data directory", c.Driver)
		}
	case storage.KindRedis:
		if c.RedisURL == "" {
			return errors.New("driver redis needs redis_url")
		}
	default:
		return errors.Errorf("unknown driver %q", c.Driver)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka_brokers set without kafka_topic")
	}
	if c.SnapshotKeep < 1 {
		return errors.Errorf("snapshot_keep must be at least 1, got %d", c.SnapshotKeep)
	}
	if c.QueueSize < 1 {
		return errors.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}

	return nil
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:     c.Driver,
		DataDir:  c.DataDir,
		RedisURL: c.RedisURL,
		RedisKey: c.RedisKey,
	}
}
