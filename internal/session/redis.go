package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/config"
	"github.com/stemsi/curricuforge/internal/view"
)

const maxUpdateAttempts = 8

// NewRedisClient creates and validates a Redis client connection.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = "curricuforge"

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}

// RedisStore keeps snapshots as JSON strings that expire after the TTL.
// Idle sessions are deleted rather than stored.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, id string) (view.Snapshot, error) {
	return readSnapshot(ctx, s.rdb, config.CacheKey.SessionStateKey(id))
}

// Update runs fn inside a WATCH on the session key so two concurrent
// transitions cannot both apply to the same starting state.
func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (view.Snapshot, error) {
	key := config.CacheKey.SessionStateKey(id)

	var (
		out   view.Snapshot
		fnErr error
	)
	txf := func(tx *redis.Tx) error {
		fnErr = nil
		cur, err := readSnapshot(ctx, tx, key)
		if err != nil {
			return err
		}
		state, err := cur.State()
		if err != nil {
			return err
		}
		next, err := fn(state)
		if err != nil {
			out, fnErr = cur, err
			return nil
		}

		snap := view.ToSnapshot(next, s.now())
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next.Status() == view.StatusIdle {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, payload, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = snap
		return nil
	}

	for range maxUpdateAttempts {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return view.Snapshot{}, fmt.Errorf("update session %s: %w", id, err)
	}
	return view.Snapshot{}, ErrConflict
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readSnapshot(ctx context.Context, c getter, key string) (view.Snapshot, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return view.ToSnapshot(view.Initial(), time.Time{}), nil
	}
	if err != nil {
		return view.Snapshot{}, fmt.Errorf("read %s: %w", key, err)
	}
	var snap view.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return view.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return snap, nil
}

// RedisBroker relays snapshots over Redis PubSub so every server instance
// sharing the Redis sees a session's changes.
type RedisBroker struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisBroker(rdb *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log.With().Str("component", "session_broker").Logger()}
}

func (b *RedisBroker) Publish(ctx context.Context, id string, snap view.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return b.rdb.Publish(ctx, config.CacheKey.SessionEventsChannel(id), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, id string) (<-chan view.Snapshot, func(), error) {
	channel := config.CacheKey.SessionEventsChannel(id)
	pubsub := b.rdb.Subscribe(ctx, channel)

	// Wait for confirmation so nothing published after Subscribe returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan view.Snapshot, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap view.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					b.log.Warn().Err(err).Str("channel", channel).Msg("Dropping malformed session event")
					continue
				}
				select {
				case out <- snap:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}
