package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

const (
	rollbackKeyPrefix = "rollback:"
	rollbackStateTTL  = 24 * time.Hour
)

type undoRecord struct {
	Compensator string               `json:"compensator"`
	State       domain.RollbackState `json:"state"`
}

// RedisAdapter keeps rollback state for in-flight processes in Redis so a
// rollback can run from any instance. Each registration is guarded by a
// SETNX marker, which makes compensation run at most once.
type RedisAdapter struct {
	client       *redis.Client
	compensators map[string]port.Compensator
}

func NewRedisAdapter(client *redis.Client, compensators ...port.Compensator) *RedisAdapter {
	r := &RedisAdapter{client: client, compensators: make(map[string]port.Compensator)}
	for _, c := range compensators {
		r.compensators[c.Name()] = c
	}
	return r
}

func (r *RedisAdapter) Register(ctx context.Context, processID string, state domain.RollbackState, compensator string) error {
	if _, ok := r.compensators[compensator]; !ok {
		return fmt.Errorf("unknown compensator %q", compensator)
	}
	data, err := json.Marshal(undoRecord{Compensator: compensator, State: state})
	if err != nil {
		return errors.Wrap(err, "marshal rollback state")
	}

	key := rollbackKeyPrefix + processID
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, rollbackStateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "store rollback state")
	}
	return nil
}

func (r *RedisAdapter) Rollback(ctx context.Context, processID string) error {
	key := rollbackKeyPrefix + processID
	values, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return errors.Wrap(err, "load rollback state")
	}

	var errs []error
	for i := len(values) - 1; i >= 0; i-- {
		ok, err := r.client.SetNX(ctx, fmt.Sprintf("%s:%d:done", key, i), 1, rollbackStateTTL).Result()
		if err != nil {
			errs = append(errs, errors.Wrap(err, "claim rollback state"))
			continue
		}
		if !ok {
			continue
		}

		var rec undoRecord
		if err := json.Unmarshal([]byte(values[i]), &rec); err != nil {
			errs = append(errs, errors.Wrap(err, "unmarshal rollback state"))
			continue
		}
		compensator, ok := r.compensators[rec.Compensator]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown compensator %q", rec.Compensator))
			continue
		}
		if err := compensator.Compensate(ctx, rec.State); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		errs = append(errs, errors.Wrap(err, "delete rollback state"))
	}
	return joinErrors(errs)
}

func (r *RedisAdapter) Release(ctx context.Context, processID string) error {
	return r.client.Del(ctx, rollbackKeyPrefix+processID).Err()
}
