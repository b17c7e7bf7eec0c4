package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"healthscribe/pkg"
)

// RedisStore keeps records in a hash keyed by summary id and remembers
// insertion order in a companion list, so several processes can share one
// record set.
type RedisStore struct {
	client   *redis.Client
	key      string
	orderKey string
}

// NewRedisStore parses redisURL and verifies the server is reachable.
func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key, orderKey: key + ":order"}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// Save inserts summary, or replaces the record with the same id.
func (s *RedisStore) Save(ctx context.Context, summary pkg.MedicalSummary) (pkg.MedicalSummary, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	added, err := s.client.HSetNX(ctx, s.key, summary.ID, data).Result()
	if err != nil {
		return pkg.MedicalSummary{}, fmt.Errorf("hsetnx: %w", err)
	}
	if added {
		err = s.client.RPush(ctx, s.orderKey, summary.ID).Err()
	} else {
		err = s.client.HSet(ctx, s.key, summary.ID, data).Err()
	}
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	return summary, nil
}

// GetAll returns every record in insertion order.
func (s *RedisStore) GetAll(ctx context.Context) ([]pkg.MedicalSummary, error) {
	ids, err := s.client.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]pkg.MedicalSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key, ids...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var m pkg.MedicalSummary
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// GetByID returns the record with the given id or ErrSummaryNotFound.
func (s *RedisStore) GetByID(ctx context.Context, id string) (pkg.MedicalSummary, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return pkg.MedicalSummary{}, pkg.ErrSummaryNotFound
	}
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	var m pkg.MedicalSummary
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return pkg.MedicalSummary{}, fmt.Errorf("decode summary: %w", err)
	}
	return m, nil
}

// Mint marks a pending summary as minted and records its owner.  The
// read-modify-write runs under WATCH so concurrent mints cannot interleave.
func (s *RedisStore) Mint(ctx context.Context, id, wallet string) (pkg.MedicalSummary, error) {
	if wallet == "" {
		return pkg.MedicalSummary{}, pkg.ErrWalletRequired
	}
	var minted pkg.MedicalSummary
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.key, id).Result()
		if errors.Is(err, redis.Nil) {
			return pkg.ErrSummaryNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &minted); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		minted.Status = pkg.StatusMinted
		minted.OwnerWallet = wallet
		data, err := json.Marshal(minted)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, id, data)
			return nil
		})
		return err
	}
	if err := s.client.Watch(ctx, txf, s.key); err != nil {
		return pkg.MedicalSummary{}, err
	}
	return minted, nil
}
