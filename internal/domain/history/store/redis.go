package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
)

type redisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
	key    string
}

// NewRedis constructs a redis-backed history store. Records live in a single
// list, newest at the head.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "visuai"
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 200
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &redisStore{
		client: client,
		limit:  limit,
		ttl:    ttl,
		key:    prefix + ":history:questions",
	}, nil
}

func (s *redisStore) Append(ctx context.Context, rec model.QuestionRecord) error {
	if rec.RecordID == "" {
		return fmt.Errorf("record id required")
	}
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, int64(s.limit)-1)
	pipe.Expire(ctx, s.key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) Recent(ctx context.Context, limit int) ([]model.QuestionRecord, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	raw, err := s.client.LRange(ctx, s.key, 0, int64(limit)-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	records := make([]model.QuestionRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.QuestionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *redisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return n, nil
}

// CleanupExpired drops records older than the TTL. The list is rewritten only
// when at least one record has expired.
func (s *redisStore) CleanupExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.ttl)

	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	live := make([]any, 0, len(raw))
	for _, item := range raw {
		var rec model.QuestionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		if rec.AskedAt.After(cutoff) {
			live = append(live, item)
		}
	}

	if len(live) == len(raw) {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(live) > 0 {
		pipe.RPush(ctx, s.key, live...)
		pipe.Expire(ctx, s.key, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        "redis",
		"total":       total,
		"limit":       s.limit,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
