package http

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// writeTimeout bounds a single frame write so one stalled consumer cannot
// wedge a fan-out.
const writeTimeout = 5 * time.Second

// wsConn adapts a websocket connection to core.Conn. Writes are serialized
// with a mutex; the websocket library allows only one concurrent writer.
type wsConn struct {
	id string

	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(id string, conn *websocket.Conn) *wsConn {
	return &wsConn{id: id, conn: conn}
}

// Send writes one JSON frame with a bounded deadline.
func (c *wsConn) Send(v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return wsjson.Write(ctx, c.conn, v)
}

// Close tears the websocket down; the handler's read loop ends and runs the
// usual disconnect path.
func (c *wsConn) Close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
}
