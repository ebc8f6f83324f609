package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/game"
	"github.com/pokerdeck/planning-poker-backend/internal/types"
)

type Msg interface{ isSessionMsg() }

// FromClient carries one decoded command from a bound stream. Notices
// and rejections go back to that stream only; committed state goes to
// every bound stream.
type FromClient struct {
	ClientID string
	Cmd      game.Command
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

// AddVoter admits a new voter and replies with the minted credential.
type AddVoter struct {
	Name  string
	Reply chan AddVoterReply
}

func (AddVoter) isSessionMsg() {}

type AddVoterReply struct {
	Voter game.Voter
	Err   error
}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// View reflects internal state for tests without data races.
type View struct {
	Version    int
	NumClients int
	State      game.State
}

// Session is the single writer for one room's state. All mutations are
// messages on the inbox, applied one at a time.
type Session struct {
	inbox      chan Msg
	state      game.State
	version    int
	clients    map[string]chan types.ServerMessage
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive atomic.Int64 // unix nanos, read by the reaper
	numClients atomic.Int32
}

func NewSession(parent context.Context, initial game.State, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan types.ServerMessage),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.touch()

	go s.loop()
	return s
}

// Inbox exposes the message channel to the WS layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// IdleFor returns how long the session has gone without a mutation,
// join, or leave. Safe to call from any goroutine.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActive.Load()))
}

// NumClients returns the number of bound streams. Safe to call from
// any goroutine.
func (s *Session) NumClients() int {
	return int(s.numClients.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.numClients.Store(int32(len(s.clients)))
				s.touch()
				// New stream gets the current snapshot immediately.
				// Non-blocking like every other send: a stream that cannot
				// even take its first message is dropped, not waited on.
				s.notify(msg.ClientID, types.ServerMessage{Action: types.ActionRefreshVotes, Votes: game.Votes(s.state)})

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch) // Tell the stream's writer no more messages
					delete(s.clients, msg.ClientID)
				}
				s.numClients.Store(int32(len(s.clients)))
				s.touch()

			case AddVoter:
				cmd := game.Command{Type: game.CmdJoin, VoterID: uuid.NewString(), Name: msg.Name}
				_, newState, err := game.Apply(s.state, cmd)
				if err != nil {
					msg.Reply <- AddVoterReply{Err: err}
					break
				}
				s.commit(newState)
				voter := newState.Voters[len(newState.Voters)-1]
				msg.Reply <- AddVoterReply{Voter: voter}
				s.broadcast(types.ServerMessage{Action: types.ActionRefreshVotes, Votes: game.Votes(s.state)})

			case FromClient:
				s.apply(msg)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(msg FromClient) {
	events, newState, err := game.Apply(s.state, msg.Cmd)
	if err != nil {
		s.reject(msg.ClientID, err)
		return
	}

	s.commit(newState)

	switch {
	case game.ContainsEvent(events, game.EvtVoteRecorded):
		s.notify(msg.ClientID, types.Notice(types.CodeSuccess, "Successfully voted."))
		s.broadcast(types.ServerMessage{Action: types.ActionRefreshVotes, Votes: game.Votes(s.state)})

	case game.ContainsEvent(events, game.EvtVotesRevealed):
		s.broadcast(types.ServerMessage{
			Action:  types.ActionRevealVotes,
			Message: "Votes have been revealed.",
			Votes:   game.Votes(s.state),
		})

	case game.ContainsEvent(events, game.EvtVotesReset):
		s.broadcast(types.ServerMessage{
			Action:  types.ActionResetVotes,
			Message: "Votes have been reset.",
			Votes:   game.Votes(s.state),
		})
	}
}

// reject maps a command error to a per-sender response. Unknown voter
// ids are terminal for the stream; the rest are informational notices.
func (s *Session) reject(clientID string, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownVoter):
		s.notify(clientID, types.ServerMessage{Error: true})
		if ch, ok := s.clients[clientID]; ok {
			close(ch)
			delete(s.clients, clientID)
			s.numClients.Store(int32(len(s.clients)))
		}

	case errors.Is(err, game.ErrRevealNotReady):
		s.notify(clientID, types.Notice(types.CodeWarning, "Not every voter has voted yet."))

	case errors.Is(err, game.ErrVotingClosed):
		s.notify(clientID, types.Notice(types.CodeWarning, "Votes have already been revealed. Reset the round to vote again."))

	case errors.Is(err, game.ErrInvalidChoice):
		s.notify(clientID, types.Notice(types.CodeError, "Invalid vote value."))

	default:
		s.notify(clientID, types.Notice(types.CodeError, "Something went wrong"))
	}
}

func (s *Session) commit(newState game.State) {
	s.state = newState
	s.version++
	s.touch()
	s.log.Debug("state committed", zap.Int("version", s.version), zap.Bool("revealed", s.state.Revealed))
}

func (s *Session) notify(clientID string, msg types.ServerMessage) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		// Sender is slow/full - drop them.
		close(ch)
		delete(s.clients, clientID)
		s.numClients.Store(int32(len(s.clients)))
		s.log.Warn("dropped slow client", zap.String("client", clientID))
	}
}

func (s *Session) broadcast(msg types.ServerMessage) {
	for id, ch := range s.clients {
		select {
		case ch <- msg:
			// ok
		default:
			// Client is slow/full - drop them rather than stall the room.
			close(ch)
			delete(s.clients, id)
			s.log.Warn("dropped slow client", zap.String("client", id))
		}
	}
	s.numClients.Store(int32(len(s.clients)))
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		// Terminal event: the room is gone, clients must navigate away.
		select {
		case ch <- types.ServerMessage{Error: true}:
		default:
		}
		close(ch)
		delete(s.clients, id)
	}
	s.numClients.Store(0)
	s.cancel()
}
