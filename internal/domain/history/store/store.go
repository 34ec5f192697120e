package store

import (
	"context"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
)

// Store defines the behaviour required by the question recorder and the web
// API. Records are append-only; retention is bounded by Limit and TTL.
type Store interface {
	Append(ctx context.Context, rec model.QuestionRecord) error
	Recent(ctx context.Context, limit int) ([]model.QuestionRecord, error)
	Count(ctx context.Context) (int64, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	Limit  int           // newest records kept, oldest dropped first
	TTL    time.Duration // records older than this are reclaimable
	Redis  *RedisConfig
	SQLite *SQLiteConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
