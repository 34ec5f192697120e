package voice

import (
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

// Spoken session feedback. Answers come from the response generator;
// these cover the paths where no answer exists.
const (
	msgNoSpeech    = "I didn't hear a question. Please try again."
	msgRecognition = "Sorry, I couldn't understand you. Please try again."
	msgEmergency   = "Sorry, listening took too long and was stopped. Please try again."
	msgUnavailable = "Voice questions are not available right now."
)

type eventKind int

const (
	evStart eventKind = iota
	evStop
	evSetRecovering
	evSettleElapsed
	evPrimed
	evPrimingElapsed
	evPartial
	evFinalized
	evAnswered
	evEmergency
	evResumeElapsed
)

// event is the only way anything reaches the session goroutine. gen 0
// passes the staleness gate; timer and recognizer events carry the
// generation they were armed under.
type event struct {
	kind  eventKind
	gen   uint64
	text  string
	err   error
	on    bool
	reply chan error
}

type commandKind int

const (
	cmdNotify commandKind = iota
	cmdInterruptOutput
	cmdPrime
	cmdPlayCue
	cmdBeginCapture
	cmdEndCapture
	cmdReleaseCapture
	cmdFinalize
	cmdFinish
	cmdResumeOutput
	cmdSpeak
)

type command struct {
	kind commandKind
	text string
}

// transition computes the next state and the side effects it demands.
// It mutates only the pending-finalization fields; the runner swaps the
// state and executes the commands afterwards.
func (s *Session) transition(ev event) (SessionState, []command) {
	switch ev.kind {
	case evStart:
		if s.state != StateIdle {
			return s.state, nil
		}
		return StateInterrupting, []command{{kind: cmdInterruptOutput}, {kind: cmdNotify}}

	case evStop:
		switch s.state {
		case StateIdle:
			return StateIdle, nil
		case StateRecovering:
			return StateIdle, []command{{kind: cmdNotify}}
		default:
			return StateIdle, []command{{kind: cmdReleaseCapture}, {kind: cmdResumeOutput}, {kind: cmdNotify}}
		}

	case evSetRecovering:
		if ev.on && s.state == StateIdle {
			return StateRecovering, []command{{kind: cmdNotify}}
		}
		if !ev.on && s.state == StateRecovering {
			return StateIdle, []command{{kind: cmdNotify}}
		}
		return s.state, nil

	case evSettleElapsed:
		if s.state != StateInterrupting {
			return s.state, nil
		}
		return StatePriming, []command{{kind: cmdPrime}, {kind: cmdNotify}}

	case evPrimed:
		if s.state != StatePriming {
			return s.state, nil
		}
		if ev.err != nil {
			s.finText, s.finErr = "", ev.err
			return StateFinalizing, []command{{kind: cmdNotify}, {kind: cmdFinalize}}
		}
		return StatePriming, []command{{kind: cmdPlayCue}}

	case evPrimingElapsed:
		if s.state != StatePriming {
			return s.state, nil
		}
		return StateListening, []command{{kind: cmdBeginCapture}, {kind: cmdNotify}}

	case evFinalized:
		if s.state != StateListening {
			return s.state, nil
		}
		s.finText, s.finErr = ev.text, ev.err
		return StateFinalizing, []command{{kind: cmdNotify}, {kind: cmdFinalize}}

	case evEmergency:
		if s.state != StatePriming && s.state != StateListening {
			return s.state, nil
		}
		s.finText = ""
		s.finErr = errors.NewCode(errors.CodeEmergencyTimeout,
			"voice.session", "no transcript within the emergency window")
		return StateFinalizing, []command{{kind: cmdNotify}, {kind: cmdFinalize}}

	case evAnswered:
		if s.state != StateFinalizing {
			return s.state, nil
		}
		return StateResponding, []command{{kind: cmdEndCapture}, {kind: cmdFinish}, {kind: cmdNotify}}

	case evResumeElapsed:
		if s.state != StateResponding {
			return s.state, nil
		}
		return StateIdle, []command{{kind: cmdResumeOutput}, {kind: cmdSpeak, text: s.pendingSpeech}, {kind: cmdNotify}}
	}
	return s.state, nil
}

// apologyFor picks the spoken feedback for a failed session.
func apologyFor(err error) string {
	switch errors.CodeOf(err) {
	case errors.CodeNoSpeechDetected:
		return msgNoSpeech
	case errors.CodeEmergencyTimeout:
		return msgEmergency
	case errors.CodeCapabilityUnavailable, errors.CodePermissionDenied:
		return msgUnavailable
	default:
		return msgRecognition
	}
}
