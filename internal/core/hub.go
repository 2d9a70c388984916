package core

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/bus"
	"github.com/vovakirdan/roomcast-server/internal/log"
	"github.com/vovakirdan/roomcast-server/internal/proto"
	"github.com/vovakirdan/roomcast-server/internal/store"
)

// Hub owns this process's connection registry and room directory and routes
// validated client events to them. One hub per process; nothing in here is a
// package-level singleton, so tests can run several hubs side by side to
// model several processes.
type Hub struct {
	reg      *Registry
	dir      *Directory
	store    store.Store
	instance string
	local    atomic.Int64
	log      *zerolog.Logger
}

// Stats is a point-in-time snapshot of this process's relay state.
type Stats struct {
	Rooms       int   `json:"rooms"`
	Members     int   `json:"members"`
	Connections int64 `json:"connections"`
}

// NewHub builds a hub replicating over b and recording connection counts in
// st. Both may be nil: a nil bus degrades to single-process operation, a nil
// store skips durable counting.
func NewHub(b bus.Bus, st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		logger = log.Nop()
	}
	reg := NewRegistry()
	return &Hub{
		reg:      reg,
		dir:      NewDirectory(b, reg, logger),
		store:    st,
		instance: uuid.NewString(),
		log:      logger,
	}
}

// Connect records a new live connection. Counter failures are logged and
// ignored; a broken counter store must not refuse clients.
func (h *Hub) Connect(ctx context.Context, conn Conn) {
	n := h.local.Add(1)
	if h.store != nil {
		if _, err := h.store.AddConnection(ctx, h.instance); err != nil {
			h.log.Warn().Err(err).Msg("record connection")
		}
	}
	h.log.Info().Int64("connected", n).Msg("client connected")
}

// Disconnect handles transport close or error: if the connection's user is
// in a room it leaves, and the registry entry is cleared regardless.
func (h *Hub) Disconnect(ctx context.Context, conn Conn) {
	if room, ok := h.dir.Resolve(conn); ok {
		if id, ok := h.reg.UserFor(conn); ok {
			room.RemoveMember(ctx, id)
		}
	}
	h.reg.Clear(conn)

	n := h.local.Add(-1)
	if h.store != nil {
		if _, err := h.store.RemoveConnection(ctx, h.instance); err != nil {
			h.log.Warn().Err(err).Msg("record disconnection")
		}
	}
	h.log.Info().Int64("connected", n).Msg("client disconnected")
}

// Join registers the asserted id on conn and adds it to the requested room.
// An id already present in a different room is removed from there first.
func (h *Hub) Join(ctx context.Context, conn Conn, ev *proto.Join) {
	if name, ok := h.reg.RoomOf(ev.ID); ok && name != ev.Room {
		if prev, ok := h.dir.Lookup(name); ok {
			prev.RemoveMember(ctx, ev.ID)
		}
	}
	h.reg.Register(conn, ev.ID)

	room := h.dir.GetOrCreate(ev.Room)
	room.AddMember(ctx, proto.Peer{ID: ev.ID, Mods: ev.Mods})
	h.log.Debug().Str("user", ev.ID).Str("room", ev.Room).Msg("join")
}

// Leave removes the connection's user from its room. A connection that never
// joined is a benign no-op.
func (h *Hub) Leave(ctx context.Context, conn Conn) {
	room, ok := h.dir.Resolve(conn)
	if !ok {
		return
	}
	id, ok := h.reg.UserFor(conn)
	if !ok {
		return
	}
	room.RemoveMember(ctx, id)
	h.log.Debug().Str("user", id).Str("room", room.Name()).Msg("leave")
}

// Data relays a data event through the connection's room. Events from a
// connection that is not in a room are silently dropped.
func (h *Hub) Data(ctx context.Context, conn Conn, ev *proto.Data) {
	room, ok := h.dir.Resolve(conn)
	if !ok {
		h.log.Debug().Str("from", ev.From).Msg("drop data event from unjoined connection")
		return
	}
	room.Send(ctx, *ev)
}

// Stats snapshots room, member and local connection counts.
func (h *Hub) Stats() Stats {
	rooms, members := h.dir.Counts()
	return Stats{
		Rooms:       rooms,
		Members:     members,
		Connections: h.local.Load(),
	}
}

// Registry exposes the connection registry, mainly for tests.
func (h *Hub) Registry() *Registry {
	return h.reg
}

// Directory exposes the room directory, mainly for tests.
func (h *Hub) Directory() *Directory {
	return h.dir
}
