package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/game"
	"github.com/pokerdeck/planning-poker-backend/internal/session"
)

// Room is one live room: identity, admission secret, and the actor
// that owns its state. Exactly one Room exists per id.
type Room struct {
	ID           string
	PasswordHash string
	CreatedAt    time.Time
	Session      *session.Session
}

type RegistryMsg interface{ isRegistryMsg() }

type CreateRoom struct {
	PasswordHash string
	Reply        chan *Room
}

type GetRoom struct {
	ID    string
	Reply chan *Room
}

type EvictRoom struct{ ID string }

// ReapIdle evicts rooms with no bound streams that have been inactive
// longer than IdleFor. Reply (optional) receives the eviction count.
type ReapIdle struct {
	IdleFor time.Duration
	Reply   chan int
}

type ShutdownRegistry struct{}

func (CreateRoom) isRegistryMsg()       {}
func (GetRoom) isRegistryMsg()          {}
func (EvictRoom) isRegistryMsg()        {}
func (ReapIdle) isRegistryMsg()         {}
func (ShutdownRegistry) isRegistryMsg() {}

// Registry owns the process-wide id -> room table. Like the sessions
// it guards, it is a single goroutine fed by a message inbox, so
// concurrent create/get/evict calls are linearized.
type Registry struct {
	inbox  chan RegistryMsg
	rooms  map[string]*Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:  make(chan RegistryMsg, 64),
		rooms:  make(map[string]*Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- RegistryMsg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				id := uuid.NewString()
				for r.rooms[id] != nil {
					// UUID collisions are negligible, but the map is authoritative.
					id = uuid.NewString()
				}
				room := &Room{
					ID:           id,
					PasswordHash: msg.PasswordHash,
					CreatedAt:    time.Now(),
					Session:      session.NewSession(r.ctx, game.NewEmptyState(), r.log.With(zap.String("room", id))),
				}
				r.rooms[id] = room
				r.log.Info("room created", zap.String("room", id))
				msg.Reply <- room

			case GetRoom:
				msg.Reply <- r.rooms[msg.ID] // May be nil

			case EvictRoom:
				r.evict(msg.ID)

			case ReapIdle:
				evicted := 0
				for id, room := range r.rooms {
					if room.Session.NumClients() == 0 && room.Session.IdleFor() > msg.IdleFor {
						r.evict(id)
						evicted++
					}
				}
				if msg.Reply != nil {
					msg.Reply <- evicted
				}

			case ShutdownRegistry:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) evict(id string) {
	room := r.rooms[id]
	if room == nil {
		return
	}
	room.Session.Inbox() <- session.Shutdown{}
	delete(r.rooms, id)
	r.log.Info("room evicted", zap.String("room", id))
}

func (r *Registry) shutdown() {
	for id, room := range r.rooms {
		room.Session.Inbox() <- session.Shutdown{}
		delete(r.rooms, id)
	}
	r.cancel()
}
