package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/bus"
	"github.com/vovakirdan/roomcast-server/internal/proto"
	"github.com/vovakirdan/roomcast-server/internal/replica"
)

// Replicated room operations. The names travel on the bus, so every process
// hosting the room must agree on them.
const (
	methodAddMember    = "addMember"
	methodRemoveMember = "removeMember"
	methodSendMessage  = "sendMessage"
)

// Room is the membership and routing state for one room name on this
// process. Every process hosting a room of the same name shares one
// replication topic (the room name), so the member list converges across
// processes, while delivery always targets only locally connected members.
//
// Membership holds no duplicate ids: adding a peer whose id is already
// present replaces the existing entry in place with the fresh mods. That
// also makes a replayed addMember idempotent under at-least-once bus
// delivery.
type Room struct {
	name string

	mu      sync.Mutex
	members []proto.Peer

	reg *Registry
	dir *Directory
	rep *replica.Replicator
	log zerolog.Logger
}

func newRoom(name string, b bus.Bus, reg *Registry, dir *Directory, logger *zerolog.Logger) *Room {
	r := &Room{
		name: name,
		reg:  reg,
		dir:  dir,
		log:  logger.With().Str("room", name).Logger(),
	}
	r.rep = replica.New(b, name, r, logger)
	return r
}

// Name returns the room's name.
func (r *Room) Name() string {
	return r.name
}

// Members returns a copy of the member sequence in insertion order.
func (r *Room) Members() []proto.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// Empty reports whether the room has no members.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// AddMember adds peer locally and replicates the call to peer processes.
func (r *Room) AddMember(ctx context.Context, peer proto.Peer) {
	r.addMember(peer)
	r.rep.Publish(ctx, methodAddMember, peer)
}

// RemoveMember removes id locally and replicates the call to peer processes.
func (r *Room) RemoveMember(ctx context.Context, id string) {
	r.removeMember(id)
	r.rep.Publish(ctx, methodRemoveMember, id)
}

// Send fans ev out to this process's local members and replicates the call
// so peer processes fan out to theirs.
func (r *Room) Send(ctx context.Context, ev proto.Data) {
	r.send(ev)
	r.rep.Publish(ctx, methodSendMessage, ev)
}

// Apply replays a replicated call from a peer process. Local-only: it never
// re-publishes.
func (r *Room) Apply(method string, args []json.RawMessage) error {
	switch method {
	case methodAddMember:
		var peer proto.Peer
		if err := replica.DecodeArg(args, 0, &peer); err != nil {
			return err
		}
		r.addMember(peer)
	case methodRemoveMember:
		var id string
		if err := replica.DecodeArg(args, 0, &id); err != nil {
			return err
		}
		r.removeMember(id)
	case methodSendMessage:
		var ev proto.Data
		if err := replica.DecodeArg(args, 0, &ev); err != nil {
			return err
		}
		r.send(ev)
	default:
		return fmt.Errorf("room: unknown method %q", method)
	}
	return nil
}

func (r *Room) addMember(peer proto.Peer) {
	r.mu.Lock()
	replaced := false
	for i := range r.members {
		if r.members[i].ID == peer.ID {
			r.members[i] = peer
			replaced = true
			break
		}
	}
	if !replaced {
		r.members = append(r.members, peer)
	}
	others := make([]proto.Peer, 0, len(r.members)-1)
	for _, m := range r.members {
		if m.ID != peer.ID {
			others = append(others, m)
		}
	}
	r.mu.Unlock()

	r.reg.SetRoom(peer.ID, r.name)

	// Notify locally connected members only. On the process where the join
	// originated that includes the joiner; on peer processes replaying the
	// call it reaches whoever happens to be connected there.
	if conn, ok := r.reg.ConnFor(peer.ID); ok {
		r.deliver(conn, peer.ID, proto.NewJoined(others))
	}
	joined := proto.NewJoined([]proto.Peer{peer})
	for _, other := range others {
		if conn, ok := r.reg.ConnFor(other.ID); ok {
			r.deliver(conn, other.ID, joined)
		}
	}
}

func (r *Room) removeMember(id string) {
	r.mu.Lock()
	r.members = slices.DeleteFunc(r.members, func(m proto.Peer) bool {
		return m.ID == id
	})
	remaining := slices.Clone(r.members)
	r.mu.Unlock()

	r.reg.ClearRoom(id)

	// Each process prunes its own empty rooms; membership changes are
	// replicated, so all processes converge to empty and do the same. The
	// directory re-checks emptiness under its lock, so a join racing this
	// removal keeps the room alive and only one remover closes replication.
	if len(remaining) == 0 {
		if r.dir.RemoveIfEmpty(r) {
			r.rep.Close()
		}
		return
	}

	left := proto.NewLeft(id)
	for _, m := range remaining {
		if conn, ok := r.reg.ConnFor(m.ID); ok {
			r.deliver(conn, m.ID, left)
		}
	}
}

func (r *Room) send(ev proto.Data) {
	r.mu.Lock()
	members := slices.Clone(r.members)
	r.mu.Unlock()

	if ev.To.All {
		for _, m := range members {
			r.sendToMember(m, ev)
		}
		return
	}

	for _, id := range ev.To.IDs {
		for _, m := range members {
			if m.ID == id {
				r.sendToMember(m, ev)
				break
			}
		}
	}
}

// sendToMember applies the per-member delivery filter: no self-echo, no
// delivery without a live local socket, and a tagged message only reaches
// members whose mod set contains the tag (an empty or absent set is exempt).
func (r *Room) sendToMember(m proto.Peer, ev proto.Data) {
	if m.ID == ev.From {
		return
	}
	if ev.Mod != "" && len(m.Mods) > 0 && !slices.Contains(m.Mods, ev.Mod) {
		return
	}
	conn, ok := r.reg.ConnFor(m.ID)
	if !ok {
		return
	}
	r.deliver(conn, m.ID, ev)
}

// deliver writes one frame and keeps a failure contained to that member.
func (r *Room) deliver(conn Conn, id string, frame any) {
	if err := conn.Send(frame); err != nil {
		r.log.Warn().Err(err).Str("user", id).Msg("deliver frame")
	}
}
