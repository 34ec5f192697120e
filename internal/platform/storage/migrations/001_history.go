package migrations

import (
	"gorm.io/gorm"
)

// Migration001History creates the question history table.
type Migration001History struct{}

func (m *Migration001History) Version() string {
	return "001_history"
}

func (m *Migration001History) Description() string {
	return "Create question history table and indexes"
}

func (m *Migration001History) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS question_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id VARCHAR(64) NOT NULL UNIQUE,
			session_id VARCHAR(64),
			question TEXT NOT NULL,
			intent VARCHAR(32),
			target VARCHAR(64),
			answer TEXT NOT NULL,
			outcome VARCHAR(32),
			confidence REAL,
			latency_ms INTEGER,
			labels JSON,
			asked_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_question_records_session_id ON question_records(session_id)`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_question_records_intent ON question_records(intent)`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_question_records_asked_at ON question_records(asked_at)`).Error; err != nil {
		return err
	}

	return nil
}

func (m *Migration001History) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS question_records`).Error
}
