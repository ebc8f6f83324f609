package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/deck"
	"github.com/pokerdeck/planning-poker-backend/internal/game"
	"github.com/pokerdeck/planning-poker-backend/internal/registry"
	"github.com/pokerdeck/planning-poker-backend/internal/session"
	"github.com/pokerdeck/planning-poker-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// StatusRoomNotFound is the close code sent when a stream binds to a
// room id the registry does not know.
const StatusRoomNotFound websocket.StatusCode = 4001

// Handler binds one WebSocket stream to a room session: it pushes the
// vote choices, registers an outbox for broadcasts, and forwards
// decoded client commands into the session until the stream closes.
func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		reply := make(chan *registry.Room, 1)
		reg.Inbox() <- registry.GetRoom{ID: roomID, Reply: reply}
		room := <-reply

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Room ids are unguessable; cross-origin pages knowing one
			// may connect.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		if room == nil {
			// One terminal event, then close: the client must abandon the room.
			writeMsg(r.Context(), conn, types.ServerMessage{Error: true})
			conn.Close(StatusRoomNotFound, "room not found")
			return
		}

		writeMsg(r.Context(), conn, types.ServerMessage{
			Action:      types.ActionGetVoteChoices,
			VoteChoices: deck.Choices(),
		})

		out := make(chan types.ServerMessage, 8)
		clientID := uuid.NewString()

		room.Session.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { room.Session.Inbox() <- session.Leave{ClientID: clientID} }()

		log.Debug("stream bound", zap.String("room", roomID), zap.String("client", clientID))

		// Writer goroutine: drains the outbox until the session closes it.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				writeMsg(ctx, conn, msg)
				cancel()
			}
			// Outbox closed: the session dropped us or the room is gone.
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close or dropped stream either way: unbind via the
				// Leave defer, never mutate room state.
				return
			}

			// All post-bind writes go through the outbox so only the
			// writer goroutine touches the connection. Malformed input
			// is forwarded as an empty command; the session answers it
			// with an error notice.
			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				room.Session.Inbox() <- session.FromClient{ClientID: clientID}
				continue
			}

			cmd, ok := toGameCommand(cm)
			if !ok {
				room.Session.Inbox() <- session.FromClient{ClientID: clientID}
				continue
			}

			room.Session.Inbox() <- session.FromClient{ClientID: clientID, Cmd: cmd}
		}
	}
}

func toGameCommand(m types.ClientMessage) (game.Command, bool) {
	switch m.Action {
	case types.ActionVote:
		return game.Command{Type: game.CmdVote, VoterID: m.VoteID, Value: m.Value}, true
	case types.ActionReveal:
		return game.Command{Type: game.CmdReveal}, true
	case types.ActionReset:
		return game.Command{Type: game.CmdReset}, true
	default:
		return game.Command{}, false
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
