package chat

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one live connection to the gateway. A single user may
// have several clients (devices/tabs), each tracked separately. The Send
// queue is consumed by a single writer goroutine; everything else only ever
// enqueues.
type Client struct {
	ConnID string          // unique within this gateway
	WS     *websocket.Conn // nil in tests; delivery then stops at Send
	Send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue hands a payload to the writer without blocking. Slow or dead
// clients lose frames; live delivery is best-effort throughout.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// CloseSend stops the writer; safe to call more than once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client is shutting down.
func (c *Client) Done() <-chan struct{} { return c.done }
