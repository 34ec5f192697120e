package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/store"
)

type (
	// QuestionRecord re-exports the shared history entity for callers.
	QuestionRecord = model.QuestionRecord
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

const (
	defaultCleanupInterval = 10 * time.Minute
	minCleanupInterval     = 30 * time.Second
)

// Options encapsulates the dependencies required to construct a Recorder.
type Options struct {
	Store           store.Store
	Logger          Logger
	SessionID       string
	CleanupInterval time.Duration
}

// Recorder persists answered questions and keeps the store pruned.
type Recorder struct {
	store     store.Store
	logger    Logger
	sessionID string

	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupOnce     sync.Once
}

// NewRecorder wires a Recorder using the supplied options.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Store == nil {
		return nil, errors.New("history recorder requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("history recorder requires a logger")
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	} else if cleanupInterval < minCleanupInterval {
		opts.Logger.Warn("cleanup interval too small, adjusting to %s", minCleanupInterval)
		cleanupInterval = minCleanupInterval
	}

	rec := &Recorder{
		store:           opts.Store,
		logger:          opts.Logger,
		sessionID:       opts.SessionID,
		cleanupInterval: cleanupInterval,
		cleanupStop:     make(chan struct{}),
	}

	go rec.runCleanup()
	return rec, nil
}

func (r *Recorder) runCleanup() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.store.CleanupExpired(context.Background()); err != nil {
				r.logger.Warn("history store cleanup failed: %v", err)
			}
		case <-r.cleanupStop:
			return
		}
	}
}

// Record stamps identity and time onto the record and appends it.
func (r *Recorder) Record(ctx context.Context, rec QuestionRecord) error {
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	if rec.SessionID == "" {
		rec.SessionID = r.sessionID
	}
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now()
	}

	if err := r.store.Append(ctx, rec); err != nil {
		r.logger.Error("failed to record question %q: %v", rec.Question, err)
		return err
	}
	r.logger.Debug("recorded question %s outcome=%s", rec.RecordID, rec.Outcome)
	return nil
}

// Recent returns the newest records, most recent first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]QuestionRecord, error) {
	return r.store.Recent(ctx, limit)
}

// Count returns the number of stored records.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

// Stats returns debug information from the store backend.
func (r *Recorder) Stats(ctx context.Context) (map[string]any, error) {
	return r.store.Stats(ctx)
}

// Close releases underlying resources.
func (r *Recorder) Close() error {
	r.cleanupOnce.Do(func() {
		close(r.cleanupStop)
	})

	if err := r.store.Close(context.Background()); err != nil {
		r.logger.Error("failed closing history store: %v", err)
		return err
	}
	return nil
}
