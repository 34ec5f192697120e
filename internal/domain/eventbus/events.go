package eventbus

// Event topics published across the engine.
const (
	// Scene events
	EventSceneUpdated = "scene:updated"

	// Question session events
	EventSessionState = "session:state"
	EventSessionError = "session:error"

	// Recognition events
	EventASRPartial = "asr:partial"
	EventASRFinal   = "asr:final"
	EventASRError   = "asr:error"

	// Question lifecycle events
	EventQuestionAsked    = "question:asked"
	EventQuestionAnswered = "question:answered"

	// Speech output events
	EventSpeakStarted   = "speak:started"
	EventSpeakCompleted = "speak:completed"

	// Connection events
	EventConnectionHello  = "connection:hello"
	EventConnectionClosed = "connection:closed"
	EventConnectionError  = "connection:error"

	// System events
	EventSystemError = "system:error"
	EventSystemInfo  = "system:info"
)

// Event payloads.

type SceneEventData struct {
	SessionID     string `json:"session_id"`
	ObjectCount   int    `json:"object_count"`
	CriticalCount int    `json:"critical_count"`
}

type SessionEventData struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Previous  string `json:"previous,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type ASREventData struct {
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
}

type QuestionEventData struct {
	SessionID  string   `json:"session_id"`
	Question   string   `json:"question"`
	Intent     string   `json:"intent,omitempty"`
	Target     string   `json:"target,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Outcome    string   `json:"outcome,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	LatencyMs  int64    `json:"latency_ms,omitempty"`
	Labels     []string `json:"labels,omitempty"`
}

type SpeakEventData struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Source    string `json:"source,omitempty"` // answer, error, recovery
}

type ConnectionEventData struct {
	SessionID string                 `json:"session_id"`
	RemoteIP  string                 `json:"remote_ip,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type SystemEventData struct {
	Level   string      `json:"level"` // error, warn, info
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
