package ws

import (
	"context"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/SamyKr/VisuAI-sub000/internal/app/engine"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/audio"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/eventbus"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/voice"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

const (
	defaultCloseTimeout = 5 * time.Second
	pingInterval        = 30 * time.Second
	pongWait            = 60 * time.Second
)

// Session owns one device connection for its lifetime: it feeds inbound
// frames to the engine, mirrors session state to the device and carries
// all spoken output as the engine's device sink.
type Session struct {
	id       string
	deviceID string
	eng      *engine.Engine
	bus      evbus.Bus
	conn     *Connection
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc
	closed atomic.Bool

	// decoder is owned by the read loop; set on hello when the device
	// announces Opus ingress.
	decoder *audio.OpusDecoder

	stateHandler func(eventbus.SessionEventData)
}

var _ engine.DeviceSink = (*Session)(nil)

// NewSession constructs a managed device session.
func NewSession(parent context.Context, id, deviceID string, eng *engine.Engine, bus evbus.Bus, conn *Connection, logger *logging.Logger) *Session {
	sessionCtx, cancel := context.WithCancelCause(parent)
	s := &Session{
		id:       id,
		deviceID: deviceID,
		eng:      eng,
		bus:      bus,
		conn:     conn,
		logger:   logger,
		ctx:      sessionCtx,
		cancel:   cancel,
	}
	s.stateHandler = s.onSessionState
	return s
}

// Context returns the session context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// ID exposes the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run serves the connection until it closes and invokes onDone once.
func (s *Session) Run(onDone func(error)) {
	var runErr error
	defer func() {
		s.Close(runErr)
		if onDone != nil {
			onDone(runErr)
		}
	}()

	if err := s.bus.Subscribe(eventbus.EventSessionState, s.stateHandler); err != nil {
		s.logger.WarnTag("WS", "state subscription failed: %v", err)
	}
	s.eng.AttachDeviceSink(s)

	go s.keepalive()
	runErr = s.readLoop()
}

// Close tears the session down: the engine loses its device, the state
// subscription is dropped and the socket is closed. Safe to call from
// any goroutine; only the first call acts.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	if s.cancel != nil {
		s.cancel(reason)
	}

	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), defaultCloseTimeout, reason)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.bus.Unsubscribe(eventbus.EventSessionState, s.stateHandler)
		s.eng.DetachDeviceSink()
		if s.decoder != nil {
			_ = s.decoder.Close()
		}
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.logger.WarnTag("WS", "session %s teardown timed out: %v", s.id, context.Cause(shutdownCtx))
	}

	if err := s.conn.Close(); err != nil {
		s.logger.WarnTag("WS", "session %s connection close failed: %v", s.id, err)
	}
}

func (s *Session) readLoop() error {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			if s.closed.Load() {
				return nil
			}
			return err
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.TextMessage:
			s.handleText(payload)
		case websocket.BinaryMessage:
			s.handleAudio(payload)
		}
	}
}

// keepalive pings the device so half-open connections die within the
// pong window instead of lingering.
func (s *Session) keepalive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.Ping(time.Now().Add(writeWait)); err != nil {
				s.logger.DebugTag("WS", "session %s ping failed: %v", s.id, err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) handleText(payload []byte) {
	var frame inboundFrame
	if err := sonic.Unmarshal(payload, &frame); err != nil {
		s.logger.WarnTag("WS", "unreadable frame from %s: %v", s.id, err)
		return
	}

	switch frame.Type {
	case typeHello:
		s.handleHello(frame)
	case typeScene:
		s.eng.UpdateImportantObjects(frame.Objects)
	case typeGesture:
		s.eng.StartSingleQuestion()
	case typeStop:
		s.eng.Stop()
	default:
		s.logger.WarnTag("WS", "unknown frame type %q from %s", frame.Type, s.id)
	}
}

func (s *Session) handleHello(frame inboundFrame) {
	if frame.DeviceID != "" {
		s.deviceID = frame.DeviceID
	}
	s.logger.InfoTag("WS", "hello from device=%s version=%d tts=%t opus=%t",
		s.deviceID, frame.ProtocolVersion, frame.Features.TTS, frame.Features.Opus)

	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	if frame.Features.Opus {
		cfg := &audio.OpusDecoderConfig{}
		if frame.AudioParams != nil {
			cfg.SampleRate = frame.AudioParams.SampleRate
			cfg.MaxChannels = frame.AudioParams.Channels
		}
		decoder, err := audio.NewOpusDecoder(cfg)
		if err != nil {
			s.logger.ErrorTag("WS", "opus decoder init failed: %v", err)
		} else {
			s.decoder = decoder
		}
	}

	s.sendJSON(helloReply{
		Type:        typeHello,
		SessionID:   s.id,
		Version:     protocolVersion,
		Transport:   "websocket",
		AudioParams: audioParams{Format: "mp3"},
	})
}

// handleAudio forwards one microphone frame to the recognizer. Opus
// packets are decoded first; a packet that fails to decode is passed
// through raw rather than lost.
func (s *Session) handleAudio(payload []byte) {
	pcm := payload
	if s.decoder != nil {
		decoded, err := s.decoder.Decode(payload)
		if err != nil {
			s.logger.DebugTag("WS", "opus decode failed, forwarding raw: %v", err)
		} else {
			if len(decoded) == 0 {
				return
			}
			pcm = decoded
		}
	}
	s.eng.FeedAudio(pcm)
}

// onSessionState mirrors engine session states to the device, and opens
// or closes the device microphone around the listening phase.
func (s *Session) onSessionState(data eventbus.SessionEventData) {
	if s.closed.Load() {
		return
	}

	s.sendJSON(stateFrame{
		Type:      typeState,
		State:     data.State,
		Previous:  data.Previous,
		SessionID: s.id,
	})

	switch {
	case data.State == voice.StateListening.String():
		s.sendJSON(listenFrame{Type: typeListen, Action: "start"})
	case data.Previous == voice.StateListening.String():
		s.sendJSON(listenFrame{Type: typeListen, Action: "stop"})
	}
}

// SendSpeak asks the device to render text with its on-device voice.
func (s *Session) SendSpeak(text string) error {
	return s.writeJSON(speakFrame{Type: typeSpeak, Text: text})
}

// SendSpeakControl sends an output-control frame ("interrupt"/"resume").
func (s *Session) SendSpeakControl(action, reason string) error {
	return s.writeJSON(speakFrame{Type: typeSpeak, Action: action, Reason: reason})
}

// SendAudio streams one server-rendered audio chunk as a binary frame.
func (s *Session) SendAudio(audioBytes []byte) error {
	return s.conn.WriteMessage(websocket.BinaryMessage, audioBytes)
}

// SendCue asks the device to play the listen cue.
func (s *Session) SendCue() error {
	return s.writeJSON(cueFrame{Type: typeCue})
}

// sendJSON writes a frame and logs delivery failures; used where the
// caller has no error path of its own.
func (s *Session) sendJSON(v any) {
	if err := s.writeJSON(v); err != nil {
		s.logger.DebugTag("WS", "frame not delivered to %s: %v", s.id, err)
	}
}

func (s *Session) writeJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
