package voice

// SessionState is the observable phase of the question session. The
// values appear verbatim in state frames sent to the device.
type SessionState string

const (
	// StateIdle means no question is in flight.
	StateIdle SessionState = "idle"

	// StateInterrupting means output has been asked to stop and the
	// settle delay is running.
	StateInterrupting SessionState = "interrupting_output"

	// StatePriming means the recognizer session is being created and
	// the listen cue is sounding.
	StatePriming SessionState = "priming"

	// StateListening means the microphone stream is feeding the
	// recognizer.
	StateListening SessionState = "listening"

	// StateFinalizing means a transcript was settled and the answer is
	// being built from the current scene.
	StateFinalizing SessionState = "finalizing"

	// StateResponding means the answer is queued and output ownership
	// is being handed back.
	StateResponding SessionState = "responding"

	// StateRecovering means the recognizer backend failed repeatedly
	// and the session refuses to start until a recheck passes.
	StateRecovering SessionState = "recovering"
)

func (s SessionState) String() string { return string(s) }

// Result is the outcome of one session, reported exactly once.
type Result struct {
	Transcript string
	Answer     string
	Err        error
}
