package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisMaxAttempts = 5

// RedisStore keeps one JSON document per top-level key ("companies", "wash_items", ...).
// Writes are read-modify-write cycles guarded by WATCH so a concurrent writer on the same
// document forces a retry instead of a lost update.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. Documents are stored under "<prefix>:<root>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "servicebook"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(root string) string {
	return s.prefix + ":" + root
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := Split(path)
	if err != nil {
		return Snapshot{}, err
	}
	raw, err := s.client.Get(ctx, s.key(segs[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{path: Join(segs...)}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store/redis: get %s: %w", segs[0], err)
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store/redis: decode %s: %w", segs[0], err)
	}
	value, ok := getAt(doc, segs[1:])
	if !ok {
		return Snapshot{path: Join(segs...)}, nil
	}
	return NewSnapshot(Join(segs...), value)
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, path string) error {
	return s.Update(ctx, map[string]any{path: nil})
}

// Push implements Store.
func (s *RedisStore) Push(ctx context.Context, path string) (string, error) {
	if _, err := Split(path); err != nil {
		return "", err
	}
	return NewPushID(), nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, values map[string]any) error {
	writes, err := planWrites(values)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	rootKeys := roots(writes)
	keys := make([]string, len(rootKeys))
	for i, root := range rootKeys {
		keys[i] = s.key(root)
	}

	txf := func(tx *redis.Tx) error {
		docs := make(map[string]any, len(rootKeys))
		for _, root := range rootKeys {
			raw, err := tx.Get(ctx, s.key(root)).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			doc, err := decodeDoc(raw)
			if err != nil {
				return fmt.Errorf("decode %s: %w", root, err)
			}
			docs[root] = doc
		}
		for _, w := range writes {
			docs[w.segs[0]] = setAt(docs[w.segs[0]], w.segs[1:], w.value)
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, root := range rootKeys {
				doc := docs[root]
				if doc == nil {
					pipe.Del(ctx, s.key(root))
					continue
				}
				raw, err := json.Marshal(doc)
				if err != nil {
					return err
				}
				pipe.Set(ctx, s.key(root), raw, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("store/redis: update: %w", err)
	}
	return ErrConflict
}
