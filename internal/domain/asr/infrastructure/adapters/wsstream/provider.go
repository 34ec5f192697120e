package wsstream

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

const (
	handshakeTimeout = 10 * time.Second
	readyTimeout     = 5 * time.Second
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
	dialRetries      = 2
)

// startFrame opens a recognition session on the local engine.
type startFrame struct {
	Action     string `json:"action"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Language   string `json:"language,omitempty"`
	Interim    bool   `json:"interim"`
}

// controlFrame brackets one capture phase ("listen" / "stop").
type controlFrame struct {
	Action string `json:"action"`
}

// resultFrame is everything the engine sends back.
type resultFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Provider streams PCM to a recognition engine over a websocket and
// relays its partial/final frames to the listener. With LocalOnly set
// it refuses any endpoint that does not resolve to the loopback
// interface, before a single byte of audio leaves the process.
type Provider struct {
	cfg    inter.Config
	logger *logging.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	listener  inter.Listener
	primed    bool
	capturing bool
	closed    bool
	gen       int
	pingStop  chan struct{}
}

func New(cfg inter.Config, logger *logging.Logger) (inter.Provider, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.KindVoice, "asr.wsstream", "recognizer url is required")
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if err := validateEndpoint(cfg.URL, cfg.LocalOnly); err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, logger: logger}, nil
}

// validateEndpoint rejects malformed URLs and, in local-only mode,
// anything that is not a loopback host.
func validateEndpoint(raw string, localOnly bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(errors.KindVoice, "asr.wsstream", "invalid recognizer url", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New(errors.KindVoice, "asr.wsstream",
			fmt.Sprintf("unsupported recognizer url scheme %q", u.Scheme))
	}
	if localOnly && !isLoopbackHost(u.Hostname()) {
		return errors.NewCode(errors.CodeCapabilityUnavailable, "asr.wsstream",
			fmt.Sprintf("local-only recognition requires a loopback endpoint, got host %q", u.Hostname()))
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Prime dials the engine and opens a recognition session. Dial and
// session-creation failures come back as request-creation errors so the
// retry policy can count them; a 401 means the engine rejected us and
// retrying is pointless.
func (p *Provider) Prime(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New(errors.KindVoice, "asr.wsstream.prime", "provider is closed")
	}
	if p.primed && p.conn != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := validateEndpoint(p.cfg.URL, p.cfg.LocalOnly); err != nil {
		return err
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}

	if err := p.openSession(conn); err != nil {
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.primed = true
	p.capturing = false
	p.gen++
	p.pingStop = make(chan struct{})
	gen := p.gen
	pingStop := p.pingStop
	p.mu.Unlock()

	go p.readLoop(conn, gen)
	go p.pingLoop(conn, pingStop)

	p.logger.DebugTag("ASR", "recognizer session open url=%s sample_rate=%d", p.cfg.URL, p.cfg.SampleRate)
	return nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	var conn *websocket.Conn
	var resp *http.Response
	var err error
	for attempt := 0; attempt <= dialRetries; attempt++ {
		conn, resp, err = dialer.DialContext(ctx, p.cfg.URL, nil)
		if err == nil {
			return conn, nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.WrapCode(errors.CodePermissionDenied, "asr.wsstream.dial",
				"recognizer rejected the connection", err)
		}
		if attempt < dialRetries {
			backoff := time.Duration(500*(attempt+1)) * time.Millisecond
			p.logger.DebugTag("ASR", "dial failed (attempt %d/%d): %v, retrying in %v",
				attempt+1, dialRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return nil, errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.dial",
					"dial canceled", ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return nil, errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.dial",
		"recognizer unreachable", err)
}

// openSession sends the start frame and waits for the engine's ready
// frame.
func (p *Provider) openSession(conn *websocket.Conn) error {
	start := startFrame{
		Action:     "start",
		SampleRate: p.cfg.SampleRate,
		Channels:   p.cfg.Channels,
		Language:   p.cfg.Language,
		Interim:    true,
	}
	payload, err := sonic.Marshal(start)
	if err != nil {
		return errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.start", "encode start frame", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.start", "send start frame", err)
	}

	conn.SetReadDeadline(time.Now().Add(readyTimeout))
	defer conn.SetReadDeadline(time.Time{})
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.start", "await ready frame", err)
	}
	var frame resultFrame
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		return errors.WrapCode(errors.CodeRequestCreation, "asr.wsstream.start", "decode ready frame", err)
	}
	if frame.Type == "error" {
		return errors.NewCode(errors.CodeRequestCreation, "asr.wsstream.start",
			fmt.Sprintf("engine refused session: %s", frame.Message))
	}
	if frame.Type != "ready" {
		return errors.NewCode(errors.CodeRequestCreation, "asr.wsstream.start",
			fmt.Sprintf("unexpected frame %q before ready", frame.Type))
	}
	return nil
}

func (p *Provider) BeginCapture() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed || p.conn == nil {
		return errors.New(errors.KindVoice, "asr.wsstream.begin", "session not primed")
	}
	if p.capturing {
		return nil
	}
	if err := p.writeControlLocked("listen"); err != nil {
		return err
	}
	p.capturing = true
	return nil
}

func (p *Provider) EndCapture() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.capturing || p.conn == nil {
		p.capturing = false
		return nil
	}
	p.capturing = false
	return p.writeControlLocked("stop")
}

// Feed streams one PCM chunk. Audio arriving outside a capture phase is
// dropped silently; the device keeps sending frames between questions.
func (p *Provider) Feed(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed || p.conn == nil {
		return errors.New(errors.KindVoice, "asr.wsstream.feed", "session not primed")
	}
	if !p.capturing || len(pcm) == 0 {
		return nil
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return errors.Wrap(errors.KindVoice, "asr.wsstream.feed", "send audio frame", err)
	}
	return nil
}

func (p *Provider) SetListener(listener inter.Listener) {
	p.mu.Lock()
	p.listener = listener
	p.mu.Unlock()
}

// Reset tears the session down so Prime can run again.
func (p *Provider) Reset() error {
	p.mu.Lock()
	p.teardownLocked()
	p.mu.Unlock()
	return nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	p.teardownLocked()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *Provider) Info() inter.Capability {
	return inter.Capability{
		Name:       "wsstream",
		LocalOnly:  p.cfg.LocalOnly,
		SampleRate: p.cfg.SampleRate,
		Channels:   p.cfg.Channels,
		Language:   p.cfg.Language,
	}
}

// teardownLocked invalidates the current generation so the read loop
// exits silently instead of reporting a network error.
func (p *Provider) teardownLocked() {
	p.gen++
	p.primed = false
	p.capturing = false
	if p.pingStop != nil {
		close(p.pingStop)
		p.pingStop = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Provider) writeControlLocked(action string) error {
	payload, err := sonic.Marshal(controlFrame{Action: action})
	if err != nil {
		return errors.Wrap(errors.KindVoice, "asr.wsstream.control", "encode control frame", err)
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(errors.KindVoice, "asr.wsstream.control",
			fmt.Sprintf("send %s frame", action), err)
	}
	return nil
}

func (p *Provider) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			p.mu.Lock()
			stale := gen != p.gen
			if !stale {
				p.teardownLocked()
			}
			listener := p.listener
			p.mu.Unlock()

			if !stale && listener != nil {
				listener.OnError(inter.ErrorKindNetwork,
					errors.Wrap(errors.KindVoice, "asr.wsstream.read", "connection lost", err))
			}
			return
		}

		var frame resultFrame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			p.logger.WarnTag("ASR", "undecodable frame from recognizer: %v", err)
			continue
		}

		p.mu.Lock()
		if gen != p.gen {
			p.mu.Unlock()
			return
		}
		listener := p.listener
		p.mu.Unlock()

		if listener == nil {
			continue
		}
		switch frame.Type {
		case "partial":
			listener.OnPartial(frame.Text)
		case "final":
			listener.OnFinal(frame.Text)
		case "error":
			listener.OnError(errorKindOf(frame.Code),
				errors.New(errors.KindVoice, "asr.wsstream",
					fmt.Sprintf("engine error %s: %s", frame.Code, frame.Message)))
		default:
			// ready duplicates and keepalive echoes are ignorable.
		}
	}
}

func (p *Provider) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				p.logger.DebugTag("ASR", "keepalive ping failed: %v", err)
				return
			}
		}
	}
}

func errorKindOf(code string) inter.ErrorKind {
	switch code {
	case "no_speech", "silence":
		return inter.ErrorKindNoSpeech
	case "canceled":
		return inter.ErrorKindCanceled
	default:
		return inter.ErrorKindRecognition
	}
}
