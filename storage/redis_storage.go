package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"ballot-backend/models"
)

const DefaultRedisKey = "ballot:journal"

// RedisStore keeps the journal in one redis list, one JSON block per element.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing redis URL")
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "error connecting to redis")
	}

	return newRedisStore(c, key), nil
}

func newRedisStore(c *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: c, key: key}
}

// Append pushes block only while the list length still equals its index.
func (rs *RedisStore) Append(ctx context.Context, block *models.Block) error {
	b, err := json.Marshal(block)
	if err != nil {
		return errors.Wrap(err, "failed to marshal block")
	}

	err = rs.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, rs.key).Result()
		if err != nil {
			return err
		}
		if err := checkNext(uint64(n), block); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, rs.key, b)
			return nil
		})
		return err
	}, rs.key)
	if err != nil {
		return errors.Wrapf(err, "error appending block %d to redis", block.Index)
	}

	return nil
}

func (rs *RedisStore) Load(ctx context.Context) ([]*models.Block, error) {
	items, err := rs.client.LRange(ctx, rs.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error loading journal from redis")
	}

	blocks := make([]*models.Block, len(items))
	for i, item := range items {
		var block models.Block
		if err := json.Unmarshal([]byte(item), &block); err != nil {
			return nil, errors.Wrapf(err, "error decoding block %d", i)
		}
		blocks[i] = &block
	}

	return blocks, nil
}

func (rs *RedisStore) Close() error {
	if err := rs.client.Close(); err != nil {
		return errors.Wrap(err, "error closing redis client")
	}
	return nil
}
