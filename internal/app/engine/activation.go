package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/question"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/voice"
)

// activation keeps a capture session open between questions and scans
// finalized transcripts for the activation phrase. Saying the phrase
// alone opens a normal question session; saying it with a trailing
// question answers that question directly.
type activation struct {
	eng    *Engine
	phrase string // normalized form

	mu       sync.Mutex
	watching bool
	closed   bool
}

func newActivation(eng *Engine, phrase string) *activation {
	return &activation{eng: eng, phrase: question.Normalize(phrase)}
}

// begin opens the watch capture. Redundant calls are no-ops, and the
// watch stays closed while a question session is live, the retry policy
// is holding, or interaction is disabled.
func (a *activation) begin() {
	a.mu.Lock()
	if a.closed || a.watching {
		a.mu.Unlock()
		return
	}
	if !a.eng.InteractionEnabled() || !a.eng.policy.CanStart() ||
		a.eng.session.State() != voice.StateIdle {
		a.mu.Unlock()
		return
	}
	a.watching = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := a.eng.manager.Prime(ctx); err != nil {
		a.eng.logger.WarnTag("ASR", "watch not primed: %v", err)
		a.setWatching(false)
		a.eng.reportStartFailure()
		return
	}

	a.eng.manager.SetListener(a)
	if err := a.eng.manager.BeginCapture(); err != nil {
		a.eng.logger.WarnTag("ASR", "watch capture failed: %v", err)
		_ = a.eng.manager.Reset()
		a.setWatching(false)
		a.eng.reportStartFailure()
		return
	}
	a.eng.logger.InfoASR("watching for %q", a.phrase)
}

// suspend closes the watch capture and resets the recognizer so the next
// Prime starts clean. Safe to call when not watching.
func (a *activation) suspend() {
	a.mu.Lock()
	was := a.watching
	a.watching = false
	a.mu.Unlock()
	if !was {
		return
	}

	if err := a.eng.manager.EndCapture(); err != nil {
		a.eng.logger.DebugTag("ASR", "watch capture end: %v", err)
	}
	if err := a.eng.manager.Reset(); err != nil {
		a.eng.logger.DebugTag("ASR", "watch reset: %v", err)
	}
}

func (a *activation) close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.suspend()
}

func (a *activation) isWatching() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watching
}

func (a *activation) setWatching(v bool) {
	a.mu.Lock()
	a.watching = v
	a.mu.Unlock()
}

// OnPartial is ignored; the watch acts on finalized transcripts only.
func (a *activation) OnPartial(text string) {}

// OnFinal runs on the provider's reader goroutine.
func (a *activation) OnFinal(text string) {
	if !a.isWatching() {
		return
	}

	// Any transcript proves the pipeline works, phrase or not.
	a.eng.policy.OnTranscript(text)

	rest, ok := splitAfterPhrase(question.Normalize(text), a.phrase)
	if !ok {
		return
	}

	a.suspend()
	if rest == "" {
		a.eng.logger.InfoASR("activation phrase heard; opening a question")
		a.eng.StartSingleQuestion()
		return
	}

	a.eng.logger.InfoASR("activation question %q", rest)
	a.answerDirect(rest)
	go a.begin()
}

func (a *activation) OnError(kind asrinter.ErrorKind, err error) {
	if kind == asrinter.ErrorKindCanceled || !a.isWatching() {
		return
	}
	a.eng.logger.WarnTag("ASR", "watch interrupted: %v", err)
	a.suspend()
	a.eng.reportStartFailure()
}

// answerDirect answers the text trailing the phrase without a session;
// the watch resumes right after.
func (a *activation) answerDirect(text string) {
	started := time.Now()
	parsed, analysis, resp := a.eng.evaluate(text)
	a.eng.speakAsync(resp)
	a.eng.publishAnswered(text, parsed, resp, time.Since(started).Milliseconds(), labelsOf(analysis))
}

// splitAfterPhrase locates the phrase on word boundaries inside the
// normalized text and returns what follows it.
func splitAfterPhrase(text, phrase string) (string, bool) {
	if phrase == "" {
		return "", false
	}
	from := 0
	for {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return "", false
		}
		start := from + i
		end := start + len(phrase)
		startOK := start == 0 || text[start-1] == ' '
		endOK := end == len(text) || text[end] == ' '
		if startOK && endOK {
			return strings.TrimSpace(text[end:]), true
		}
		from = end
	}
}
