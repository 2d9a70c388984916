package core

// Conn is a live client connection as seen by the core layer. Implementations
// must be comparable (the registry uses them as map keys) and safe for
// concurrent Send calls.
type Conn interface {
	// Send writes one frame, JSON-encoded, without blocking on other
	// connections. An error means this frame was not delivered to this
	// connection; it carries no meaning for anyone else.
	Send(v any) error

	// Close tears the connection down. The transport's close handling runs
	// as usual.
	Close()
}
