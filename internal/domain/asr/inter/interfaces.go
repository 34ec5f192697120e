package inter

import "context"

// ErrorKind classifies recognizer failures by what the user should be
// told, not by transport detail.
type ErrorKind string

const (
	// ErrorKindNoSpeech means the capture window closed without usable
	// speech.
	ErrorKindNoSpeech ErrorKind = "no_speech"
	// ErrorKindRecognition covers decode or service failures while
	// audio was flowing.
	ErrorKindRecognition ErrorKind = "recognition"
	// ErrorKindNetwork covers connection loss to the recognizer.
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindCanceled marks teardown-driven interruptions; they carry
	// no user-facing outcome.
	ErrorKindCanceled ErrorKind = "canceled"
)

// Capability reports what a recognizer instance can guarantee. LocalOnly
// is the privacy gate: when false the engine refuses to enable voice
// interaction instead of falling back to a remote service.
type Capability struct {
	Name       string `json:"name"`
	LocalOnly  bool   `json:"local_only"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Language   string `json:"language"`
}

// Listener receives the recognition event stream of one capture phase.
// Callbacks arrive from the provider's reader goroutine and must not
// block.
type Listener interface {
	OnPartial(text string)
	OnFinal(text string)
	OnError(kind ErrorKind, err error)
}

// Provider is the streaming recognizer contract.
//
// Prime performs the capability/permission check and creates the
// recognition session; it is the only call whose failure feeds the
// retry policy. BeginCapture and EndCapture bracket one listening
// phase; Feed streams raw PCM inside it. Reset drops session state so
// the provider can be primed again.
type Provider interface {
	Prime(ctx context.Context) error
	BeginCapture() error
	EndCapture() error
	Feed(pcm []byte) error
	SetListener(listener Listener)
	Reset() error
	Info() Capability
	Close() error
}

// Config is the adapter-facing recognizer configuration, mapped from
// the application config by the composition root.
type Config struct {
	URL        string `json:"url"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Language   string `json:"language"`
	LocalOnly  bool   `json:"local_only"`
}
