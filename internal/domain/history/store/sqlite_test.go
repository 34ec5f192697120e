package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/storage"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&storage.QuestionRow{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{Limit: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	rec := model.QuestionRecord{
		RecordID: "sqlite-rec",
		Question: "where is the crosswalk",
		Intent:   "location",
		Target:   "crosswalk",
		Answer:   "The crosswalk is to your left, about 4 meters away.",
		Outcome:  model.OutcomeAnswered,
		Labels:   []string{"crosswalk", "traffic_light"},
	}

	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	recent, err := store.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) != 1 || recent[0].RecordID != rec.RecordID {
		t.Fatalf("unexpected records: %+v", recent)
	}
	if len(recent[0].Labels) != 2 || recent[0].Labels[0] != "crosswalk" {
		t.Fatalf("labels did not round-trip: %+v", recent[0].Labels)
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one row, got %d", total)
	}
}

func TestSQLiteStoreLimit(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{Limit: 3})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	for i := 0; i < 5; i++ {
		rec := model.QuestionRecord{
			RecordID: fmt.Sprintf("sqlite-%d", i),
			Question: fmt.Sprintf("question %d", i),
			Answer:   "answer",
			Outcome:  model.OutcomeAnswered,
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d error: %v", i, err)
		}
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected rows trimmed to 3, got %d", total)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if recent[0].RecordID != "sqlite-4" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{Limit: 10, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	old := model.QuestionRecord{
		RecordID: "sqlite-old",
		Question: "old question",
		Answer:   "old answer",
		Outcome:  model.OutcomeAnswered,
		AskedAt:  time.Now().Add(-time.Hour),
	}
	fresh := model.QuestionRecord{
		RecordID: "sqlite-fresh",
		Question: "fresh question",
		Answer:   "fresh answer",
		Outcome:  model.OutcomeAnswered,
	}

	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("Append old error: %v", err)
	}
	if err := store.Append(ctx, fresh); err != nil {
		t.Fatalf("Append fresh error: %v", err)
	}

	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) != 1 || recent[0].RecordID != "sqlite-fresh" {
		t.Fatalf("expected only the fresh record, got %+v", recent)
	}
}
