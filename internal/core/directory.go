package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/bus"
)

// Directory is the process-local registry of live Room instances. Rooms
// exist implicitly: GetOrCreate materializes them on first join and the room
// removes itself once its last member leaves.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room

	bus bus.Bus
	reg *Registry
	log *zerolog.Logger
}

// NewDirectory builds an empty directory. Rooms it creates replicate over b
// and look local sockets up in reg.
func NewDirectory(b bus.Bus, reg *Registry, logger *zerolog.Logger) *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
		bus:   b,
		reg:   reg,
		log:   logger,
	}
}

// GetOrCreate returns the room registered under name, constructing and
// registering a fresh one if none exists.
func (d *Directory) GetOrCreate(name string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok := d.rooms[name]; ok {
		return room
	}
	room := newRoom(name, d.bus, d.reg, d, d.log)
	d.rooms[name] = room
	d.log.Debug().Str("room", name).Msg("room created")
	return room
}

// Lookup returns the room registered under name, if any.
func (d *Directory) Lookup(name string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[name]
	return room, ok
}

// RemoveIfEmpty deletes room from the directory if it is still the
// registered instance for its name and has no members, reporting whether it
// did. The emptiness check and the delete happen under both locks, so a join
// racing the last leave either lands before the check and keeps the room, or
// goes through GetOrCreate and gets a fresh instance. A subsequent join under
// the same name gets a room with no memory of prior members.
func (d *Directory) RemoveIfEmpty(room *Room) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rooms[room.name] != room {
		return false
	}
	room.mu.Lock()
	empty := len(room.members) == 0
	room.mu.Unlock()
	if !empty {
		return false
	}
	delete(d.rooms, room.name)
	d.log.Debug().Str("room", room.name).Msg("room removed")
	return true
}

// Resolve maps a connection to its room: connection to user id via the
// registry, user id to room name, room name to instance.
func (d *Directory) Resolve(conn Conn) (*Room, bool) {
	id, ok := d.reg.UserFor(conn)
	if !ok {
		return nil, false
	}
	name, ok := d.reg.RoomOf(id)
	if !ok {
		return nil, false
	}
	return d.Lookup(name)
}

// Counts returns the number of rooms and the total member count across them.
func (d *Directory) Counts() (rooms int, members int) {
	d.mu.Lock()
	list := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		list = append(list, room)
	}
	d.mu.Unlock()

	for _, room := range list {
		members += len(room.Members())
	}
	return len(list), members
}
