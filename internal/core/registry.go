package core

import "sync"

// Registry tracks this process's live connections: which user a connection
// asserted, which connection currently serves a user, and which room that
// user occupies. It is strictly process-local; cross-process membership lives
// in the replicated room state, which knows peers but not sockets.
type Registry struct {
	mu         sync.Mutex
	userByConn map[Conn]string
	connByUser map[string]Conn
	roomByUser map[string]string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		userByConn: make(map[Conn]string),
		connByUser: make(map[string]Conn),
		roomByUser: make(map[string]string),
	}
}

// Register binds conn and id in both directions. A user re-asserting its id
// on a new connection displaces the old binding.
func (g *Registry) Register(conn Conn, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userByConn[conn] = id
	g.connByUser[id] = conn
}

// Clear removes conn from both directions. The user's room mapping is left
// alone; room membership is the room's to clean up.
func (g *Registry) Clear(conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.userByConn[conn]; ok {
		delete(g.connByUser, id)
	}
	delete(g.userByConn, conn)
}

// UserFor returns the user id asserted on conn.
func (g *Registry) UserFor(conn Conn) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.userByConn[conn]
	return id, ok
}

// ConnFor returns the live local connection serving id, if any.
func (g *Registry) ConnFor(id string) (Conn, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	conn, ok := g.connByUser[id]
	return conn, ok
}

// SetRoom records which room id currently occupies.
func (g *Registry) SetRoom(id, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roomByUser[id] = room
}

// ClearRoom drops id's room mapping.
func (g *Registry) ClearRoom(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.roomByUser, id)
}

// RoomOf returns the room id currently occupies.
func (g *Registry) RoomOf(id string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.roomByUser[id]
	return room, ok
}
