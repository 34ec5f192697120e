package eventbus

// Logger is the minimal logging contract needed by the tracer.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
}

// Tracer logs engine events as they flow through the bus. Wired when the
// configured log level is debug.
type Tracer struct {
	logger Logger
}

func NewTracer(logger Logger) *Tracer {
	return &Tracer{logger: logger}
}

// Handle routes one event to its log line.
func (t *Tracer) Handle(eventType string, data interface{}) {
	switch eventType {
	case EventSessionState:
		if d, ok := data.(SessionEventData); ok {
			t.logger.Debug("session %s state %s -> %s", d.SessionID, d.Previous, d.State)
		}
	case EventASRPartial, EventASRFinal:
		if d, ok := data.(ASREventData); ok {
			t.logger.Debug("asr session=%s final=%v text=%q", d.SessionID, d.IsFinal, d.Text)
		}
	case EventSceneUpdated:
		if d, ok := data.(SceneEventData); ok {
			t.logger.Debug("scene session=%s objects=%d critical=%d", d.SessionID, d.ObjectCount, d.CriticalCount)
		}
	case EventQuestionAnswered:
		if d, ok := data.(QuestionEventData); ok {
			t.logger.Info("question answered session=%s intent=%s outcome=%s", d.SessionID, d.Intent, d.Outcome)
		}
	case EventSpeakStarted, EventSpeakCompleted:
		if d, ok := data.(SpeakEventData); ok {
			t.logger.Debug("speak %s source=%s text=%q", eventType, d.Source, d.Text)
		}
	case EventSystemError:
		if d, ok := data.(SystemEventData); ok {
			t.logger.Info("system %s: %s", d.Level, d.Message)
		}
	}
}

// SetupTracer subscribes a tracer to the event topics worth following.
func SetupTracer(logger Logger) *Tracer {
	tracer := NewTracer(logger)

	topics := []string{
		EventSessionState,
		EventASRPartial,
		EventASRFinal,
		EventSceneUpdated,
		EventQuestionAnswered,
		EventSpeakStarted,
		EventSpeakCompleted,
		EventSystemError,
	}
	for _, topic := range topics {
		topic := topic
		_ = Subscribe(topic, func(args ...interface{}) {
			if len(args) > 0 {
				tracer.Handle(topic, args[0])
			}
		})
	}
	return tracer
}
