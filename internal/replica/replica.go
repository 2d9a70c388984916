// Package replica keeps copies of an object living in different processes
// eventually consistent by replaying its mutating calls over a shared bus.
//
// Each mutating operation is published as an envelope naming the method and
// carrying its arguments; peer processes apply the same call to their local
// copy. There is no coordinator, no ordering guarantee and no retry: the
// replicated operations themselves must tolerate redundant or reordered
// application.
package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/bus"
	"github.com/vovakirdan/roomcast-server/internal/log"
)

// Envelope is the unit published on the bus for one replicated call.
type Envelope struct {
	MethodName string            `json:"methodName"`
	Args       []json.RawMessage `json:"args"`
	Source     string            `json:"source"`
}

// Applier is the closed set of operations a replicated object can replay.
// Apply must perform the call against local state only; in particular it
// must never publish, or every process would echo calls back indefinitely.
type Applier interface {
	Apply(method string, args []json.RawMessage) error
}

// Replicator publishes local mutating calls on a topic and replays calls
// published by peer instances. The source id distinguishes this instance's
// own publications when the bus echoes them back; it is fixed once per
// instance, never per call.
type Replicator struct {
	topic  string
	source string
	bus    bus.Bus
	log    *zerolog.Logger

	mu    sync.Mutex
	unsub func()
}

// New subscribes applier to topic on b. A nil bus is allowed and turns the
// replicator into a no-op, as does a failed subscribe: replication is
// best-effort and its absence must not prevent local operation.
func New(b bus.Bus, topic string, applier Applier, logger *zerolog.Logger) *Replicator {
	if logger == nil {
		logger = log.Nop()
	}
	r := &Replicator{
		topic:  topic,
		source: uuid.NewString(),
		bus:    b,
		log:    logger,
	}

	if b == nil {
		return r
	}

	unsub, err := b.Subscribe(topic, func(payload []byte) {
		r.receive(applier, payload)
	})
	if err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("replica subscribe failed, running unreplicated")
		return r
	}
	r.unsub = unsub
	return r
}

// Source returns the instance's origin id.
func (r *Replicator) Source() string {
	return r.source
}

// Publish announces a mutating call that has already been applied locally.
// Fire-and-forget: marshal or bus errors are logged and swallowed, because
// the local call has completed and must not be failed retroactively.
func (r *Replicator) Publish(ctx context.Context, method string, args ...any) {
	if r.bus == nil {
		return
	}

	env := Envelope{
		MethodName: method,
		Args:       make([]json.RawMessage, 0, len(args)),
		Source:     r.source,
	}
	for _, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			r.log.Error().Err(err).Str("topic", r.topic).Str("method", method).Msg("marshal replica arg")
			return
		}
		env.Args = append(env.Args, raw)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		r.log.Error().Err(err).Str("topic", r.topic).Str("method", method).Msg("marshal replica envelope")
		return
	}

	if err := r.bus.Publish(ctx, r.topic, payload); err != nil {
		r.log.Warn().Err(err).Str("topic", r.topic).Str("method", method).Msg("publish replica call")
	}
}

// Close cancels the bus subscription. Safe to call from any goroutine and
// more than once; the local path and a bus replay can both decide to close.
// Publishing after Close is still legal.
func (r *Replicator) Close() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (r *Replicator) receive(applier Applier, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn().Err(err).Str("topic", r.topic).Msg("drop malformed replica envelope")
		return
	}

	// Our own publication echoed back by the bus.
	if env.Source == r.source {
		return
	}

	if err := applier.Apply(env.MethodName, env.Args); err != nil {
		r.log.Warn().Err(err).Str("topic", r.topic).Str("method", env.MethodName).Msg("replay replica call")
	}
}

// DecodeArg unmarshals the i-th envelope argument into v.
func DecodeArg(args []json.RawMessage, i int, v any) error {
	if i >= len(args) {
		return fmt.Errorf("replica: missing argument %d", i)
	}
	return json.Unmarshal(args[i], v)
}
