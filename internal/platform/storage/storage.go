package storage

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/storage/migrations"
)

// Open initializes the SQLite database that backs question history and runs
// pending migrations. The parent directory of the DSN is created on demand.
func Open(dsn string) (*gorm.DB, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	// AutoMigrate covers schema drift between released migrations.
	if err := db.AutoMigrate(&QuestionRow{}); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to migrate database", err)
	}

	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001History{})

	if err := manager.RunMigrations(); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to run migrations", err)
	}

	return db, nil
}

// Close releases the underlying sql connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.close", "failed to access connection pool", err)
	}
	return sqlDB.Close()
}

// QuestionRow is the GORM model for one answered question.
type QuestionRow struct {
	ID         uint           `gorm:"primaryKey"`
	RecordID   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"record_id"`
	SessionID  string         `gorm:"type:varchar(64);index"                json:"session_id"`
	Question   string         `gorm:"type:text;not null"                    json:"question"`
	Intent     string         `gorm:"type:varchar(32);index"                json:"intent"`
	Target     string         `gorm:"type:varchar(64)"                      json:"target,omitempty"`
	Answer     string         `gorm:"type:text;not null"                    json:"answer"`
	Outcome    string         `gorm:"type:varchar(32)"                      json:"outcome"`
	Confidence float64        `gorm:""                                      json:"confidence"`
	LatencyMs  int64          `gorm:""                                      json:"latency_ms"`
	Labels     datatypes.JSON `gorm:""                                      json:"labels,omitempty"`
	AskedAt    time.Time      `gorm:"index"                                 json:"asked_at"`
}

// TableName pins the table name so migrations and GORM agree.
func (QuestionRow) TableName() string {
	return "question_records"
}
