package push

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"
)

// WebSocketConn adapts a websocket connection to the Conn interface.
// Messages are JSON-encoded before transmission. Sends are serialized:
// notifications for one user may arrive from concurrent requests, and
// interleaved writes would corrupt frames.
type WebSocketConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// NewWebSocketConn wraps a live websocket connection.
func NewWebSocketConn(ws *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{ws: ws}
}

func (c *WebSocketConn) Send(message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.Message.Send(c.ws, string(payload))
}

func (c *WebSocketConn) Close() error {
	return c.ws.Close()
}
