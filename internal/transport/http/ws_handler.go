package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/core"
	"github.com/vovakirdan/roomcast-server/internal/proto"
)

// invalidEventMessage is the body of the error frame for anything that fails
// protocol validation.
const invalidEventMessage = "Invalid event"

// WSHandler upgrades HTTP connections and bridges them to the hub.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	wc, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	conn := newWSConn(uuid.NewString(), wc)
	h.hub.Connect(ctx, conn)
	// The request context is gone once the handler unwinds; cleanup gets its
	// own so the leave still replicates.
	defer h.hub.Disconnect(context.Background(), conn)
	defer wc.Close(websocket.StatusInternalError, "internal error")

	err = h.readLoop(ctx, wc, conn)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			h.log.Warn().Err(err).Str("conn_id", conn.id).Msg("ws connection closed with error")
			status = websocket.StatusInternalError
			reason = "read error"
		}
	}

	_ = wc.Close(status, reason)
}

// readLoop drives the per-connection state machine: every text frame is
// validated and dispatched; a frame that fails validation gets exactly one
// error frame and mutates nothing.
func (h *WSHandler) readLoop(ctx context.Context, wc *websocket.Conn, conn *wsConn) error {
	for {
		typ, data, err := wc.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.sendInvalid(conn)
			continue
		}

		ev, err := proto.Decode(data)
		if err != nil {
			h.log.Debug().Str("conn_id", conn.id).Msg("invalid event")
			h.sendInvalid(conn)
			continue
		}

		switch ev := ev.(type) {
		case *proto.Join:
			h.hub.Join(ctx, conn, ev)
		case *proto.Leave:
			h.hub.Leave(ctx, conn)
		case *proto.Data:
			h.hub.Data(ctx, conn, ev)
		}
	}
}

func (h *WSHandler) sendInvalid(conn *wsConn) {
	if err := conn.Send(proto.NewError(invalidEventMessage)); err != nil {
		h.log.Warn().Err(err).Str("conn_id", conn.id).Msg("write error frame")
	}
}
