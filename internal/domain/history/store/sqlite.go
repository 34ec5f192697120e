package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/storage"
)

type sqliteStore struct {
	db    *gorm.DB
	limit int
	ttl   time.Duration
}

// NewSQLite builds a SQLite-backed history store.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 200
	}
	return &sqliteStore{
		db:    db,
		limit: limit,
		ttl:   cfg.TTL,
	}, nil
}

func (s *sqliteStore) Append(ctx context.Context, rec model.QuestionRecord) error {
	if rec.RecordID == "" {
		return fmt.Errorf("record id required")
	}
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s.toRow(rec)).Error; err != nil {
			return err
		}
		// Keep only the newest rows up to the limit.
		return tx.Exec(
			`DELETE FROM question_records WHERE id NOT IN
				(SELECT id FROM question_records ORDER BY id DESC LIMIT ?)`,
			s.limit,
		).Error
	})
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]model.QuestionRecord, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	var rows []storage.QuestionRow
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]model.QuestionRecord, len(rows))
	for i, row := range rows {
		records[i] = s.fromRow(&row)
	}
	return records, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.QuestionRow{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("asked_at < ?", time.Now().Add(-s.ttl)).
		Delete(&storage.QuestionRow{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        "sqlite",
		"total":       total,
		"limit":       s.limit,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func (s *sqliteStore) toRow(rec model.QuestionRecord) *storage.QuestionRow {
	labels, _ := json.Marshal(rec.Labels)
	return &storage.QuestionRow{
		RecordID:   rec.RecordID,
		SessionID:  rec.SessionID,
		Question:   rec.Question,
		Intent:     rec.Intent,
		Target:     rec.Target,
		Answer:     rec.Answer,
		Outcome:    rec.Outcome,
		Confidence: rec.Confidence,
		LatencyMs:  rec.LatencyMs,
		Labels:     labels,
		AskedAt:    rec.AskedAt,
	}
}

func (s *sqliteStore) fromRow(row *storage.QuestionRow) model.QuestionRecord {
	rec := model.QuestionRecord{
		RecordID:   row.RecordID,
		SessionID:  row.SessionID,
		Question:   row.Question,
		Intent:     row.Intent,
		Target:     row.Target,
		Answer:     row.Answer,
		Outcome:    row.Outcome,
		Confidence: row.Confidence,
		LatencyMs:  row.LatencyMs,
		AskedAt:    row.AskedAt,
	}
	if len(row.Labels) > 0 {
		var labels []string
		if err := json.Unmarshal(row.Labels, &labels); err == nil {
			rec.Labels = labels
		}
	}
	return rec
}
