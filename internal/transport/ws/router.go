package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SamyKr/VisuAI-sub000/internal/app/engine"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/observability"
)

// Router upgrades HTTP requests to device sessions.
type Router struct {
	hub    *Hub
	eng    *engine.Engine
	bus    evbus.Bus
	logger *logging.Logger

	upgrader         *websocket.Upgrader
	token            string
	handshakeTimeout time.Duration
}

// RouterOptions configures the websocket router.
type RouterOptions struct {
	// Token, when set, must accompany the upgrade request as a
	// `token` query parameter or bearer Authorization header.
	Token            string
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
}

// NewRouter constructs a websocket router.
func NewRouter(hub *Hub, eng *engine.Engine, bus evbus.Bus, logger *logging.Logger, opts RouterOptions) *Router {
	upgrader := &websocket.Upgrader{
		CheckOrigin: opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Router{
		hub:              hub,
		eng:              eng,
		bus:              bus,
		logger:           logger,
		upgrader:         upgrader,
		token:            opts.Token,
		handshakeTimeout: timeout,
	}
}

// Handle upgrades the HTTP connection and launches a device session.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	if !r.authorized(req) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ctx := req.Context()
	handshakeCtx, cancel := context.WithTimeoutCause(ctx, r.handshakeTimeout, ErrHandshakeTimeout)
	defer cancel()
	req = req.WithContext(handshakeCtx)

	spanCtx, spanEnd := observability.StartSpan(handshakeCtx, "transport.websocket", "handle")
	var spanErr error
	defer func() {
		spanEnd(spanErr)
	}()

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		spanErr = err
		observability.RecordMetric(spanCtx, "websocket.upgrade.error", 1,
			map[string]string{"component": "transport.websocket"})
		r.logger.ErrorTag("WS", "upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	deviceID := resolveDeviceID(req)
	wsConn := NewConnection(sessionID, conn)

	// One device owns the engine; sessions detach cleanly before the
	// slot frees, so a refused peer simply retries later.
	session := NewSession(context.Background(), sessionID, deviceID, r.eng, r.bus, wsConn, r.logger)
	if !r.hub.Register(session) {
		spanErr = ErrDeviceBusy
		observability.RecordMetric(spanCtx, "websocket.connection.refused", 1,
			map[string]string{"component": "transport.websocket", "device_id": deviceID})
		_ = wsConn.WriteClose(websocket.ClosePolicyViolation, ErrDeviceBusy.Error())
		_ = wsConn.Close()
		return
	}

	r.logger.InfoTag("WS", "device connected device=%s session=%s", deviceID, sessionID)
	observability.RecordMetric(spanCtx, "websocket.connection.opened", 1,
		map[string]string{"component": "transport.websocket", "device_id": deviceID})

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag("WS", "session %s ended abnormally: %v", session.ID(), runErr)
		} else {
			r.logger.InfoTag("WS", "device disconnected device=%s session=%s", deviceID, sessionID)
		}
		observability.RecordMetric(session.Context(), "websocket.connection.closed", 1,
			map[string]string{"component": "transport.websocket", "device_id": deviceID})
	})
}

func (r *Router) authorized(req *http.Request) bool {
	if r.token == "" {
		return true
	}
	if req.URL.Query().Get("token") == r.token {
		return true
	}
	header := req.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ") == r.token
}

func resolveDeviceID(req *http.Request) string {
	deviceID := req.Header.Get("Device-Id")
	if deviceID == "" {
		deviceID = req.URL.Query().Get("device-id")
	}
	if deviceID == "" {
		deviceID = "unknown"
	}
	return deviceID
}
