package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

const redisKeyPrefix = "orderflow:wf:"

// RedisStore persists workflow state as JSON values with native redis
// expiry carrying the retention TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

func redisKey(workflowID string) string {
	return redisKeyPrefix + workflowID
}

func (s *RedisStore) SaveState(ctx context.Context, state *models.WorkflowState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "encode workflow %s", state.WorkflowID)
	}
	if err := s.rdb.Set(ctx, redisKey(state.WorkflowID), payload, ttl).Err(); err != nil {
		return errors.Wrapf(err, "save workflow %s", state.WorkflowID)
	}
	return nil
}

func (s *RedisStore) GetState(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	payload, err := s.rdb.Get(ctx, redisKey(workflowID)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get workflow %s", workflowID)
	}
	var state models.WorkflowState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrapf(err, "decode workflow %s", workflowID)
	}
	return &state, nil
}

func (s *RedisStore) Exists(ctx context.Context, workflowID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, redisKey(workflowID)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "check workflow %s", workflowID)
	}
	return n > 0, nil
}

func (s *RedisStore) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	var states []*models.WorkflowState
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		payload, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			// expired between scan and read
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "list workflows")
		}
		var state models.WorkflowState
		if err := json.Unmarshal(payload, &state); err != nil {
			return nil, errors.Wrapf(err, "decode key %s", iter.Val())
		}
		states = append(states, &state)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan workflows")
	}
	return states, nil
}

func (s *RedisStore) DeleteState(ctx context.Context, workflowID string) error {
	if err := s.rdb.Del(ctx, redisKey(workflowID)).Err(); err != nil {
		return errors.Wrapf(err, "delete workflow %s", workflowID)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ storage.Store = (*RedisStore)(nil)
