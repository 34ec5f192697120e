package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Connection wraps a gorilla websocket connection with serialized writes
// and idle tracking.
type Connection struct {
	id         string
	socket     *websocket.Conn
	mu         sync.Mutex
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection creates a tracked websocket connection.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:     id,
		socket: socket,
	}
	conn.touch()
	return conn
}

// WriteMessage sends a message to the device. Writes are serialized and
// bounded by writeWait.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("connection %s already closed", c.id)
	}

	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.socket.WriteMessage(messageType, data); err != nil {
		return err
	}

	c.touch()
	return nil
}

// ReadMessage receives the next frame from the device.
func (c *Connection) ReadMessage() (int, []byte, error) {
	messageType, payload, err := c.socket.ReadMessage()
	if err == nil {
		c.touch()
	}
	return messageType, payload, err
}

// Ping sends a ping control frame. Safe concurrently with writes.
func (c *Connection) Ping(deadline time.Time) error {
	if c.closed.Load() {
		return fmt.Errorf("connection %s already closed", c.id)
	}
	return c.socket.WriteControl(websocket.PingMessage, nil, deadline)
}

// WriteClose sends a close control frame with the given code and reason.
func (c *Connection) WriteClose(code int, reason string) error {
	message := websocket.FormatCloseMessage(code, reason)
	return c.socket.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
}

// SetReadDeadline bounds the next read.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.socket.SetReadDeadline(t)
}

// SetPongHandler installs the pong callback used for keepalive.
func (c *Connection) SetPongHandler(handler func(string) error) {
	c.socket.SetPongHandler(handler)
}

// Close terminates the underlying websocket connection.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.socket.Close()
}

// GetID returns the connection identifier.
func (c *Connection) GetID() string {
	return c.id
}

// IsClosed reports whether the connection has already been closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// GetLastActiveTime exposes when the device last interacted with the server.
func (c *Connection) GetLastActiveTime() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// IsStale checks whether the connection has been idle for longer than timeout.
func (c *Connection) IsStale(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return time.Since(c.GetLastActiveTime()) > timeout
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
