package ws

import (
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
)

// Frame types of the device protocol. Text frames carry one JSON object
// with a "type" field; binary frames carry audio (Opus packets up, MP3
// down).
const (
	typeHello   = "hello"
	typeScene   = "scene"
	typeGesture = "gesture"
	typeStop    = "stop"
	typeState   = "state"
	typeCue     = "cue"
	typeListen  = "listen"
	typeSpeak   = "speak"
)

const protocolVersion = 1

// inboundFrame is the union of every device→server text frame. Only the
// fields for the announced type are set.
type inboundFrame struct {
	Type            string                `json:"type"`
	DeviceID        string                `json:"device_id,omitempty"`
	ProtocolVersion int                   `json:"protocol_version,omitempty"`
	Features        deviceFeatures        `json:"features,omitempty"`
	AudioParams     *audioParams          `json:"audio_params,omitempty"`
	Objects         []scene.TrackedObject `json:"objects,omitempty"`
}

// deviceFeatures announces what the device can do: render text with its
// own voice, and encode microphone audio as Opus.
type deviceFeatures struct {
	TTS  bool `json:"tts"`
	Opus bool `json:"opus"`
}

type audioParams struct {
	Format        string `json:"format,omitempty"`
	SampleRate    int    `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	FrameDuration int    `json:"frame_duration,omitempty"`
}

type helloReply struct {
	Type        string      `json:"type"`
	SessionID   string      `json:"session_id"`
	Version     int         `json:"version"`
	Transport   string      `json:"transport"`
	AudioParams audioParams `json:"audio_params"`
}

type stateFrame struct {
	Type      string `json:"type"`
	State     string `json:"state"`
	Previous  string `json:"previous,omitempty"`
	SessionID string `json:"session_id"`
}

type listenFrame struct {
	Type   string `json:"type"`
	Action string `json:"action"` // start | stop
}

type cueFrame struct {
	Type string `json:"type"`
}

// speakFrame carries spoken output. A plain frame has only text; control
// frames set the action ("interrupt" or "resume") and an optional reason.
type speakFrame struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Action string `json:"action,omitempty"`
	Reason string `json:"reason,omitempty"`
}
