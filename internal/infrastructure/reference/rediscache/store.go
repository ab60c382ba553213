package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/resilience"
)

const (
	keyPrefix = "crf:loc:"
	tombstone = "-"
)

// KV is the slice of a key-value cache the decorator needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client redis.Cmdable
}

func NewRedisKV(client redis.Cmdable) *RedisKV {
	return &RedisKV{client: client}
}

// Dial parses a redis:// URL and verifies the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

type Options struct {
	TTL                time.Duration
	NegativeTTL        time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

// Store is a read-through cache in front of another LocationStore. Cache
// failures never fail a lookup; they fall through to the backing store.
type Store struct {
	next        ports.LocationStore
	kv          KV
	ttl         time.Duration
	negativeTTL time.Duration
	executor    *resilience.Executor
	logger      *slog.Logger
}

func New(next ports.LocationStore, kv KV, options Options) *Store {
	ttl := options.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	negativeTTL := options.NegativeTTL
	if negativeTTL <= 0 {
		negativeTTL = 5 * time.Minute
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		next:        next,
		kv:          kv,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		executor:    options.ResilienceExecutor,
		logger:      logger,
	}
}

func (s *Store) LocationByCode(ctx context.Context, level domain.Level, code string) (*domain.Location, error) {
	key := keyPrefix + "code:" + string(level) + ":" + code
	return s.readThrough(ctx, key, level, func() (*domain.Location, error) {
		return s.next.LocationByCode(ctx, level, code)
	})
}

func (s *Store) LocationByID(ctx context.Context, level domain.Level, id int64) (*domain.Location, error) {
	key := keyPrefix + "id:" + string(level) + ":" + strconv.FormatInt(id, 10)
	return s.readThrough(ctx, key, level, func() (*domain.Location, error) {
		return s.next.LocationByID(ctx, level, id)
	})
}

func (s *Store) readThrough(
	ctx context.Context,
	key string,
	level domain.Level,
	load func() (*domain.Location, error),
) (*domain.Location, error) {
	if raw, ok := s.get(ctx, key); ok {
		if raw == tombstone {
			return nil, domain.WrapError(domain.ErrLocationNotFound, "cached location", fmt.Errorf("key=%s", key))
		}
		var loc domain.Location
		if err := json.Unmarshal([]byte(raw), &loc); err == nil {
			return &loc, nil
		}
		s.logger.Warn("location_cache_corrupt", "key", key, "level", string(level))
	}

	loc, err := load()
	switch {
	case err == nil:
		payload, merr := json.Marshal(loc)
		if merr == nil {
			s.set(ctx, key, string(payload), s.ttl)
		}
		return loc, nil
	case domain.IsKind(err, domain.ErrLocationNotFound):
		s.set(ctx, key, tombstone, s.negativeTTL)
		return nil, err
	default:
		return nil, err
	}
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	var (
		value string
		found bool
	)
	err := s.execute(ctx, "redis.get", func(ctx context.Context) error {
		var err error
		value, found, err = s.kv.Get(ctx, key)
		return err
	})
	if err != nil {
		s.logger.Warn("location_cache_get_failed", "key", key, "error", err)
		return "", false
	}
	return value, found
}

func (s *Store) set(ctx context.Context, key, value string, ttl time.Duration) {
	err := s.execute(ctx, "redis.set", func(ctx context.Context) error {
		return s.kv.Set(ctx, key, value, ttl)
	})
	if err != nil {
		s.logger.Warn("location_cache_set_failed", "key", key, "error", err)
	}
}

func (s *Store) execute(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.executor == nil {
		return fn(ctx)
	}
	return s.executor.Execute(ctx, op, fn, classifyRedisError)
}

func classifyRedisError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
