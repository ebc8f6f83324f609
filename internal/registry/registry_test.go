package registry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/session"
	"github.com/pokerdeck/planning-poker-backend/internal/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRegistry(ctx, zap.NewNop())
}

func createRoom(t *testing.T, r *Registry) *Room {
	t.Helper()
	reply := make(chan *Room, 1)
	r.Inbox() <- CreateRoom{PasswordHash: "hash", Reply: reply}
	select {
	case room := <-reply:
		if room == nil {
			t.Fatalf("expected a room")
		}
		return room
	case <-time.After(time.Second):
		t.Fatalf("timed out creating room")
		return nil // unreachable
	}
}

func getRoom(t *testing.T, r *Registry, id string) *Room {
	t.Helper()
	reply := make(chan *Room, 1)
	r.Inbox() <- GetRoom{ID: id, Reply: reply}
	select {
	case room := <-reply:
		return room
	case <-time.After(time.Second):
		t.Fatalf("timed out getting room")
		return nil // unreachable
	}
}

func TestRegistry_Create_Get_SameRoom(t *testing.T) {
	r := newTestRegistry(t)

	room := createRoom(t, r)
	got := getRoom(t, r, room.ID)

	if got == nil || got != room {
		t.Fatalf("expected same room instance")
	}
	if got.PasswordHash != "hash" {
		t.Fatalf("room lost its password hash")
	}
	if got.Session == nil {
		t.Fatalf("room has no session")
	}
}

func TestRegistry_GetUnknownRoomIsNil(t *testing.T) {
	r := newTestRegistry(t)
	if got := getRoom(t, r, "no-such-room"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestRegistry_RoomIDsAreDistinct(t *testing.T) {
	r := newTestRegistry(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		room := createRoom(t, r)
		if seen[room.ID] {
			t.Fatalf("duplicate room id %q", room.ID)
		}
		seen[room.ID] = true
	}
}

func TestRegistry_EvictShutsSessionDownAndRemovesRoom(t *testing.T) {
	r := newTestRegistry(t)
	room := createRoom(t, r)

	r.Inbox() <- EvictRoom{ID: room.ID}

	// The evicted id is gone; this also proves the evict was processed.
	if got := getRoom(t, r, room.ID); got != nil {
		t.Fatalf("room still present after evict")
	}

	// The session actor is shut down: a GetState reply never arrives.
	reply := make(chan session.View, 1)
	room.Session.Inbox() <- session.GetState{Reply: reply}
	select {
	case <-reply:
		t.Fatalf("session still alive after evict")
	case <-time.After(100 * time.Millisecond):
		// good
	}
}

func TestRegistry_ReapIdleOnlyEvictsEmptyIdleRooms(t *testing.T) {
	r := newTestRegistry(t)

	idle := createRoom(t, r)
	active := createRoom(t, r)

	// Bind a stream to the active room so it is never reap-eligible.
	outbox := make(chan types.ServerMessage, 8)
	active.Session.Inbox() <- session.Join{ClientID: "c1", Outbox: outbox}
	select {
	case <-outbox: // join snapshot, proves the bind was processed
	case <-time.After(time.Second):
		t.Fatalf("timed out binding stream")
	}

	// Everything is younger than an hour: nothing reaped.
	if n := reap(t, r, time.Hour); n != 0 {
		t.Fatalf("expected 0 reaped, got %d", n)
	}

	time.Sleep(20 * time.Millisecond)

	// Zero threshold: the empty idle room goes, the bound one stays.
	if n := reap(t, r, 10*time.Millisecond); n != 1 {
		t.Fatalf("expected 1 reaped, got %d", n)
	}
	if got := getRoom(t, r, idle.ID); got != nil {
		t.Fatalf("idle room still present after reap")
	}
	if got := getRoom(t, r, active.ID); got == nil {
		t.Fatalf("active room was reaped")
	}
}

func reap(t *testing.T, r *Registry, idleFor time.Duration) int {
	t.Helper()
	reply := make(chan int, 1)
	r.Inbox() <- ReapIdle{IdleFor: idleFor, Reply: reply}
	select {
	case n := <-reply:
		return n
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for reap")
		return 0 // unreachable
	}
}
