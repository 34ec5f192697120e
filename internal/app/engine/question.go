package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/eventbus"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/question"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/voice"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

const msgUnavailable = "Voice questions are not available right now."

const recordTimeout = 5 * time.Second

// StartSingleQuestion opens one voice-question session. When interaction
// is off the refusal is spoken instead; a session already in flight is a
// silent no-op.
func (e *Engine) StartSingleQuestion() {
	if !e.InteractionEnabled() {
		e.logger.InfoSession("question refused: voice interaction is disabled")
		e.speakAsync(msgUnavailable)
		return
	}

	// Starts during the recovery hold are rejected, not queued. The
	// session only mirrors the hold when it was idle at the time, so
	// the policy is checked here as well.
	if !e.policy.CanStart() {
		e.logger.DebugTag("SESSION", "gesture ignored: recognizer recovery in progress")
		return
	}

	// The watch capture holds the recognizer; hand it over first.
	if e.activation != nil {
		e.activation.suspend()
	}

	if err := e.session.Start(); err != nil {
		if errors.IsCode(err, errors.CodeSessionBusy) {
			e.logger.DebugTag("SESSION", "gesture ignored: %v", err)
			return
		}
		e.logger.WarnTag("SESSION", "question not started: %v", err)
		return
	}

	e.askMu.Lock()
	e.lastAsk = askContext{startedAt: time.Now()}
	e.askMu.Unlock()
}

// UpdateImportantObjects replaces the scene snapshot. Latest wins; the
// next question reads whatever is current at finalization time.
func (e *Engine) UpdateImportantObjects(objects []scene.TrackedObject) {
	e.holder.Update(objects)

	critical := 0
	for _, obj := range objects {
		if obj.Score > e.criticalScore {
			critical++
		}
	}
	e.bus.Publish(eventbus.EventSceneUpdated, eventbus.SceneEventData{
		SessionID:     e.id,
		ObjectCount:   len(objects),
		CriticalCount: critical,
	})
}

// AskText answers a question without a voice session. The answer is also
// spoken when a device is connected and no voice question is in flight.
func (e *Engine) AskText(text string) (Answer, error) {
	const op = "engine.ask"

	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, errors.New(errors.KindDomain, op, "question text is empty")
	}

	parsed, analysis, resp := e.evaluate(text)
	e.logger.InfoTag("QUERY", "text question intent=%s target=%q -> %q", parsed.Intent, parsed.Target, resp)

	if e.session.State() == voice.StateIdle {
		e.speakAsync(resp)
	}
	e.publishAnswered(text, parsed, resp, 0, labelsOf(analysis))

	return Answer{
		Intent:     string(parsed.Intent),
		Target:     parsed.Target,
		Confidence: parsed.Confidence,
		Response:   resp,
	}, nil
}

// evaluate runs the parse-analyze-generate pipeline once. The snapshot
// is read here, which is what ties the answer to the scene at
// finalization time.
func (e *Engine) evaluate(text string) (question.Parsed, scene.Analysis, string) {
	parsed := e.parser.Parse(text)
	objects, _ := e.holder.Snapshot()
	analysis := e.analyzer.Analyze(objects)
	return parsed, analysis, e.generator.Generate(parsed, analysis)
}

// answer is the session's answer hook; it runs on the session goroutine
// at finalization.
func (e *Engine) answer(transcript string) string {
	parsed, analysis, resp := e.evaluate(transcript)

	e.askMu.Lock()
	e.lastAsk.parsed = parsed
	e.lastAsk.labels = labelsOf(analysis)
	e.askMu.Unlock()

	e.logger.InfoTag("QUERY", "intent=%s target=%q confidence=%.2f", parsed.Intent, parsed.Target, parsed.Confidence)
	return resp
}

// onSessionState runs on the session goroutine for every state change.
func (e *Engine) onSessionState(state voice.SessionState) {
	previous := e.lastState
	e.lastState = state

	e.bus.Publish(eventbus.EventSessionState, eventbus.SessionEventData{
		SessionID: e.id,
		State:     state.String(),
		Previous:  previous.String(),
	})

	// Back to idle means the recognizer is free again; the watcher may
	// not be re-opened synchronously from this hook.
	if state == voice.StateIdle && e.activation != nil && e.InteractionEnabled() {
		go e.activation.begin()
	}
}

// onSessionFinished runs on the session goroutine once per session, after
// the answer (or apology) has been decided.
func (e *Engine) onSessionFinished(res voice.Result) {
	e.askMu.Lock()
	ask := e.lastAsk
	e.lastAsk = askContext{}
	e.askMu.Unlock()

	var latency int64
	if !ask.startedAt.IsZero() {
		latency = time.Since(ask.startedAt).Milliseconds()
	}

	data := eventbus.QuestionEventData{
		SessionID: e.id,
		Question:  res.Transcript,
		Answer:    res.Answer,
		Outcome:   model.OutcomeAnswered,
		LatencyMs: latency,
		Labels:    ask.labels,
	}

	switch {
	case res.Err == nil:
		e.policy.OnTranscript(res.Transcript)
		e.answered.Add(1)
		data.Intent = string(ask.parsed.Intent)
		data.Target = ask.parsed.Target
		data.Confidence = ask.parsed.Confidence
	case errors.IsCode(res.Err, errors.CodeNoSpeechDetected):
		data.Outcome = model.OutcomeNoSpeech
	default:
		data.Outcome = model.OutcomeError
	}

	if errors.IsCode(res.Err, errors.CodeCapabilityUnavailable) ||
		errors.IsCode(res.Err, errors.CodePermissionDenied) {
		// The session has already spoken the unavailable message.
		e.disableInteraction(res.Err.Error(), false)
	}
	if e.activation != nil && errors.IsCode(res.Err, errors.CodeRequestCreation) {
		e.reportStartFailure()
	}

	e.bus.Publish(eventbus.EventQuestionAnswered, data)
}

// publishAnswered emits the answered event for the non-session paths.
func (e *Engine) publishAnswered(text string, parsed question.Parsed, resp string, latency int64, labels []string) {
	e.answered.Add(1)
	e.bus.Publish(eventbus.EventQuestionAnswered, eventbus.QuestionEventData{
		SessionID:  e.id,
		Question:   text,
		Intent:     string(parsed.Intent),
		Target:     parsed.Target,
		Answer:     resp,
		Outcome:    model.OutcomeAnswered,
		Confidence: parsed.Confidence,
		LatencyMs:  latency,
		Labels:     labels,
	})
}

// recordAnswered is the async bus subscriber feeding the history store;
// it runs off the session goroutine.
func (e *Engine) recordAnswered(data eventbus.QuestionEventData) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	// Record logs its own failures; history must never block a question.
	_ = e.recorder.Record(ctx, history.QuestionRecord{
		SessionID:  data.SessionID,
		Question:   data.Question,
		Intent:     data.Intent,
		Target:     data.Target,
		Answer:     data.Answer,
		Outcome:    data.Outcome,
		Confidence: data.Confidence,
		LatencyMs:  data.LatencyMs,
		Labels:     data.Labels,
	})
}

func labelsOf(a scene.Analysis) []string {
	labels := make([]string, 0, len(a.Counts))
	for label := range a.Counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
