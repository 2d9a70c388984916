package core

import (
	"context"
	"testing"

	"github.com/vovakirdan/roomcast-server/internal/bus"
	"github.com/vovakirdan/roomcast-server/internal/proto"
)

func TestHubJoinAndLeave(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, nil, nil)

	conn := &fakeConn{}
	hub.Connect(ctx, conn)
	hub.Join(ctx, conn, &proto.Join{ID: "alice", Room: "lobby"})

	room, ok := hub.Directory().Lookup("lobby")
	if !ok {
		t.Fatalf("room should exist after join")
	}
	wantIDs(t, room, "alice")
	if id, ok := hub.Registry().UserFor(conn); !ok || id != "alice" {
		t.Fatalf("connection should map to alice, got %q", id)
	}

	hub.Leave(ctx, conn)
	if _, ok := hub.Directory().Lookup("lobby"); ok {
		t.Fatalf("room should be pruned after the last leave")
	}

	// Leave without a room is a benign no-op.
	hub.Leave(ctx, conn)
}

func TestHubJoinMovesUserBetweenRooms(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, nil, nil)

	conn := &fakeConn{}
	hub.Join(ctx, conn, &proto.Join{ID: "alice", Room: "red"})
	hub.Join(ctx, conn, &proto.Join{ID: "alice", Room: "blue"})

	if _, ok := hub.Directory().Lookup("red"); ok {
		t.Fatalf("old room should be pruned once alice moved out")
	}
	blue, ok := hub.Directory().Lookup("blue")
	if !ok {
		t.Fatalf("new room should exist")
	}
	wantIDs(t, blue, "alice")
	if name, _ := hub.Registry().RoomOf("alice"); name != "blue" {
		t.Fatalf("alice should map to blue, got %q", name)
	}
}

func TestHubDataFromUnjoinedConnectionIsDropped(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, nil, nil)

	conn := &fakeConn{}
	hub.Connect(ctx, conn)

	ev := dataEvent("alice", "", proto.TargetAll(), "hi")
	hub.Data(ctx, conn, &ev)

	if frames := conn.take(); len(frames) != 0 {
		t.Fatalf("unjoined sender should get nothing back, got %+v", frames)
	}
	if rooms, _ := hub.Directory().Counts(); rooms != 0 {
		t.Fatalf("no room should be created by a stray data event")
	}
}

func TestHubDisconnectLeavesRoomAndClearsRegistry(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, nil, nil)

	alice := &fakeConn{}
	bob := &fakeConn{}
	hub.Connect(ctx, alice)
	hub.Connect(ctx, bob)
	hub.Join(ctx, alice, &proto.Join{ID: "alice", Room: "lobby"})
	hub.Join(ctx, bob, &proto.Join{ID: "bob", Room: "lobby"})
	bob.take()

	hub.Disconnect(ctx, alice)

	room, ok := hub.Directory().Lookup("lobby")
	if !ok {
		t.Fatalf("room should survive with one member left")
	}
	wantIDs(t, room, "bob")
	if _, ok := hub.Registry().UserFor(alice); ok {
		t.Fatalf("registry entry should be cleared on disconnect")
	}

	frames := bob.take()
	if len(frames) != 1 {
		t.Fatalf("remaining member should see one left frame, got %+v", frames)
	}
	if left, ok := frames[0].(proto.Left); !ok || left.ID != "alice" {
		t.Fatalf("expected left frame for alice, got %+v", frames[0])
	}
}

func TestHubStats(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil, nil, nil)

	conn := &fakeConn{}
	hub.Connect(ctx, conn)
	hub.Join(ctx, conn, &proto.Join{ID: "alice", Room: "lobby"})

	stats := hub.Stats()
	if stats.Rooms != 1 || stats.Members != 1 || stats.Connections != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	hub.Disconnect(ctx, conn)
	stats = hub.Stats()
	if stats.Rooms != 0 || stats.Members != 0 || stats.Connections != 0 {
		t.Fatalf("unexpected stats after disconnect: %+v", stats)
	}
}

// Two hubs on one shared bus model two server processes hosting the same
// logical room.
func TestTwoProcessMembershipConverges(t *testing.T) {
	ctx := context.Background()
	shared := bus.NewMemory()
	hubA := NewHub(shared, nil, nil)
	hubB := NewHub(shared, nil, nil)

	// B already hosts the room (subscriptions only cover changes made while
	// both sides are listening).
	hubB.Directory().GetOrCreate("lobby")

	connX := &fakeConn{}
	hubA.Connect(ctx, connX)
	hubA.Join(ctx, connX, &proto.Join{ID: "x", Room: "lobby"})

	roomA, _ := hubA.Directory().Lookup("lobby")
	roomB, _ := hubB.Directory().Lookup("lobby")
	wantIDs(t, roomA, "x")
	wantIDs(t, roomB, "x")

	connY := &fakeConn{}
	hubB.Connect(ctx, connY)
	hubB.Join(ctx, connY, &proto.Join{ID: "y", Room: "lobby", Mods: []string{"x"}})

	wantIDs(t, roomA, "x", "y")
	wantIDs(t, roomB, "x", "y")
}

func TestTwoProcessJoinNotifiesRemoteMembers(t *testing.T) {
	ctx := context.Background()
	shared := bus.NewMemory()
	hubA := NewHub(shared, nil, nil)
	hubB := NewHub(shared, nil, nil)

	hubB.Directory().GetOrCreate("lobby")

	connX := &fakeConn{}
	hubA.Connect(ctx, connX)
	hubA.Join(ctx, connX, &proto.Join{ID: "x", Room: "lobby"})
	connX.take()

	connY := &fakeConn{}
	hubB.Connect(ctx, connY)
	hubB.Join(ctx, connY, &proto.Join{ID: "y", Room: "lobby"})

	joined := connX.joinedFrames(t)
	if len(joined) != 1 || len(joined[0].Peers) != 1 || joined[0].Peers[0].ID != "y" {
		t.Fatalf("x should learn about y via replay on its own process, got %+v", joined)
	}
}

func TestTwoProcessDataDelivery(t *testing.T) {
	ctx := context.Background()
	shared := bus.NewMemory()
	hubA := NewHub(shared, nil, nil)
	hubB := NewHub(shared, nil, nil)

	hubB.Directory().GetOrCreate("lobby")

	connX := &fakeConn{}
	hubA.Connect(ctx, connX)
	hubA.Join(ctx, connX, &proto.Join{ID: "x", Room: "lobby"})

	connY := &fakeConn{}
	hubB.Connect(ctx, connY)
	hubB.Join(ctx, connY, &proto.Join{ID: "y", Room: "lobby", Mods: []string{"audio"}})
	connX.take()
	connY.take()

	// Delivery happens on Y's process via the replicated sendMessage call.
	ev := dataEvent("x", "audio", proto.TargetAll(), "hello")
	hubA.Data(ctx, connX, &ev)

	frames := connY.dataFrames(t)
	if len(frames) != 1 || frames[0].Data != "hello" {
		t.Fatalf("y should receive the relayed event, got %+v", frames)
	}
	if frames := connX.dataFrames(t); len(frames) != 0 {
		t.Fatalf("sender must not hear its own event echoed back, got %+v", frames)
	}

	// A tag outside y's mod set never reaches it, even across processes.
	ev = dataEvent("x", "video", proto.TargetAll(), "nope")
	hubA.Data(ctx, connX, &ev)
	if frames := connY.dataFrames(t); len(frames) != 0 {
		t.Fatalf("mod filter must hold across processes, got %+v", frames)
	}
}

func TestTwoProcessEmptyRoomPrunedIndependently(t *testing.T) {
	ctx := context.Background()
	shared := bus.NewMemory()
	hubA := NewHub(shared, nil, nil)
	hubB := NewHub(shared, nil, nil)

	hubB.Directory().GetOrCreate("lobby")

	connX := &fakeConn{}
	hubA.Connect(ctx, connX)
	hubA.Join(ctx, connX, &proto.Join{ID: "x", Room: "lobby"})

	connY := &fakeConn{}
	hubB.Connect(ctx, connY)
	hubB.Join(ctx, connY, &proto.Join{ID: "y", Room: "lobby"})

	hubA.Leave(ctx, connX)
	hubB.Leave(ctx, connY)

	if _, ok := hubA.Directory().Lookup("lobby"); ok {
		t.Fatalf("process A should have pruned the empty room")
	}
	if _, ok := hubB.Directory().Lookup("lobby"); ok {
		t.Fatalf("process B should have pruned the empty room")
	}

	// Rejoining creates a fresh, empty room on each process.
	hubA.Join(ctx, connX, &proto.Join{ID: "x", Room: "lobby"})
	roomA, _ := hubA.Directory().Lookup("lobby")
	wantIDs(t, roomA, "x")
}
