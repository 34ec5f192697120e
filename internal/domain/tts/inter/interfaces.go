package inter

// Speaker is the engine's spoken-output channel. A question session
// interrupts it before listening and resumes it afterwards; answers and
// status messages go out through Speak.
type Speaker interface {
	// InterruptAndStop halts in-progress output immediately. The reason
	// is forwarded to the device for its logs.
	InterruptAndStop(reason string)

	// Speak delivers one utterance. It returns once the utterance has
	// been handed to the output channel, not when playback finishes.
	Speak(text string) error

	// Resume lifts the interrupt so continuous output may flow again.
	Resume()
}

// Sink is the device-facing frame writer speakers deliver through. The
// websocket session implements it while a device is connected.
type Sink interface {
	// SendSpeak asks the device to render text with its on-device voice.
	SendSpeak(text string) error

	// SendSpeakControl sends an output-control frame. Actions are
	// "interrupt" and "resume"; reason accompanies interrupts.
	SendSpeakControl(action, reason string) error

	// SendAudio streams server-rendered audio bytes to the device.
	SendAudio(audio []byte) error
}

// SinkHost is implemented by speakers that deliver through a device
// connection. The transport attaches its sink on connect and detaches
// with nil on close.
type SinkHost interface {
	SetSink(Sink)
}

// Config carries the speaker settings shared by adapters.
type Config struct {
	Voice  string `json:"voice"`
	Format string `json:"format"`
}
