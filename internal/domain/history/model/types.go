package model

import "time"

// Question outcomes recorded alongside each history entry.
const (
	OutcomeAnswered = "answered"
	OutcomeNoSpeech = "no_speech"
	OutcomeError    = "error"
)

// QuestionRecord captures one question and the spoken answer it produced.
type QuestionRecord struct {
	RecordID   string    `json:"record_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Question   string    `json:"question"`
	Intent     string    `json:"intent"`
	Target     string    `json:"target,omitempty"`
	Answer     string    `json:"answer"`
	Outcome    string    `json:"outcome"`
	Confidence float64   `json:"confidence,omitempty"`
	LatencyMs  int64     `json:"latency_ms,omitempty"`
	Labels     []string  `json:"labels,omitempty"` // distinct detection labels at answer time
	AskedAt    time.Time `json:"asked_at"`
}

// Logger provides the minimal logging contract required by the history domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
