package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisPrefix = "namematch"

// Redis implements Store with one hash per record and set indexes per kind
// and per household.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis connects to the Redis server at addr.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{Addr: addr}
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func recordKey(kind Kind, id string) string {
	return fmt.Sprintf("%s:%s:rec:%s", redisPrefix, kind, id)
}

func kindIndexKey(kind Kind) string {
	return fmt.Sprintf("%s:%s:all", redisPrefix, kind)
}

func householdIndexKey(kind Kind, code string) string {
	return fmt.Sprintf("%s:%s:hh:%s", redisPrefix, kind, code)
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, rec Record) error {
	key := recordKey(rec.Kind, rec.ID)
	oldCode, err := r.rdb.HGet(ctx, key, FieldHouseholdCode).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("read %s record: %w", rec.Kind, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(rec.Fields) > 0 {
			pipe.HSet(ctx, key, toAnyMap(rec.Fields))
		}
		pipe.SAdd(ctx, kindIndexKey(rec.Kind), rec.ID)
		newCode := rec.Fields[FieldHouseholdCode]
		if oldCode != "" && oldCode != newCode {
			pipe.SRem(ctx, householdIndexKey(rec.Kind, oldCode), rec.ID)
		}
		if newCode != "" {
			pipe.SAdd(ctx, householdIndexKey(rec.Kind, newCode), rec.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s record: %w", rec.Kind, err)
	}
	return nil
}

// Query implements Store. Predicates, ordering and limits are applied
// client side after narrowing by the household index when possible.
func (r *Redis) Query(ctx context.Context, q Query) ([]Record, error) {
	index := kindIndexKey(q.Kind)
	for _, p := range q.Where {
		if p.Field == FieldHouseholdCode && p.Op == OpEq {
			index = householdIndexKey(q.Kind, p.Value)
			break
		}
	}

	ids, err := r.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", q.Kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, recordKey(q.Kind, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", q.Kind, err)
	}

	records := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		records = append(records, Record{Kind: q.Kind, ID: ids[i], Fields: fields})
	}
	return q.apply(records), nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, kind Kind, id string) error {
	key := recordKey(kind, id)
	code, err := r.rdb.HGet(ctx, key, FieldHouseholdCode).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("read %s record: %w", kind, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, kindIndexKey(kind), id)
		if code != "" {
			pipe.SRem(ctx, householdIndexKey(kind, code), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	return nil
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
