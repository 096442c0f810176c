package storage

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"ballot-backend/models"
)

// Driver persists the journal. Blocks are appended strictly in index order
// and Load returns them in that order.
type Driver interface {
	Append(ctx context.Context, block *models.Block) error
	Load(ctx context.Context) ([]*models.Block, error)
	Close() error
}

const (
	KindJSON    = "json"
	KindLevelDB = "leveldb"
	KindRedis   = "redis"
)

type Options struct {
	Kind     string
	DataDir  string
	RedisURL string
	RedisKey string
}

func Open(ctx context.Context, opts Options) (Driver, error) {
	switch opts.Kind {
	case KindJSON, "":
		return NewJSONStore(opts.DataDir)
	case KindLevelDB:
		return OpenLevelDB(opts.DataDir)
	case KindRedis:
		return NewRedisStore(ctx, opts.RedisURL, opts.RedisKey)
	default:
		return nil, errors.Errorf("unknown storage driver %q", opts.Kind)
	}
}

func checkNext(next uint64, block *models.Block) error {
	if block.Index != next {
		return fmt.Errorf("out of order block: expected index %d, got %d", next, block.Index)
	}
	return nil
}
