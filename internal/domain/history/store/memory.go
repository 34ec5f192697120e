package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
)

type memoryStore struct {
	records     []model.QuestionRecord // newest last
	mutex       sync.RWMutex
	limit       int
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory history store.
func NewMemory(cfg Config) Store {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 200
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		records:     make([]model.QuestionRecord, 0, limit),
		limit:       limit,
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Append(_ context.Context, rec model.QuestionRecord) error {
	if rec.RecordID == "" {
		return fmt.Errorf("record id required")
	}
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now()
	}

	s.mutex.Lock()
	s.records = append(s.records, rec)
	if over := len(s.records) - s.limit; over > 0 {
		s.records = append(s.records[:0:0], s.records[over:]...)
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Recent(_ context.Context, limit int) ([]model.QuestionRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	// Newest first.
	out := make([]model.QuestionRecord, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memoryStore) Count(_ context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.records)), nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.ttl)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Records are ordered by arrival, so expiry forms a prefix.
	firstLive := len(s.records)
	for i, rec := range s.records {
		if rec.AskedAt.After(cutoff) {
			firstLive = i
			break
		}
	}
	if firstLive > 0 {
		s.records = append(s.records[:0:0], s.records[firstLive:]...)
	}
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return map[string]any{
		"type":        "memory",
		"total":       len(s.records),
		"limit":       s.limit,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
