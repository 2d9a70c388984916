package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/vovakirdan/roomcast-server/internal/bus"
	"github.com/vovakirdan/roomcast-server/internal/log"
	"github.com/vovakirdan/roomcast-server/internal/proto"
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	mu       sync.Mutex
	frames   []any
	failSend bool
	closed   bool
}

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	c.frames = append(c.frames, v)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// take drains and returns everything sent so far.
func (c *fakeConn) take() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.frames
	c.frames = nil
	return frames
}

func (c *fakeConn) joinedFrames(t *testing.T) []proto.Joined {
	t.Helper()
	var out []proto.Joined
	for _, f := range c.take() {
		if j, ok := f.(proto.Joined); ok {
			out = append(out, j)
		}
	}
	return out
}

func (c *fakeConn) dataFrames(t *testing.T) []proto.Data {
	t.Helper()
	var out []proto.Data
	for _, f := range c.take() {
		if d, ok := f.(proto.Data); ok {
			out = append(out, d)
		}
	}
	return out
}

func newTestDirectory(b bus.Bus) (*Registry, *Directory) {
	reg := NewRegistry()
	return reg, NewDirectory(b, reg, log.Nop())
}

func memberIDs(room *Room) []string {
	members := room.Members()
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func wantIDs(t *testing.T, room *Room, want ...string) {
	t.Helper()
	got := memberIDs(room)
	if len(got) != len(want) {
		t.Fatalf("member ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member ids = %v, want %v", got, want)
		}
	}
}

func dataEvent(from, mod string, to proto.Target, payload string) proto.Data {
	return proto.Data{Type: proto.TypeData, Mod: mod, To: to, From: from, Data: payload}
}
