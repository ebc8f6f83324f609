package types

import (
	"github.com/pokerdeck/planning-poker-backend/internal/deck"
	"github.com/pokerdeck/planning-poker-backend/internal/game"
)

// Inbound actions.
const (
	ActionVote   = "vote"
	ActionReveal = "reveal"
	ActionReset  = "reset"
)

// Outbound actions.
const (
	ActionGetVoteChoices = "get_vote_choices"
	ActionRefreshVotes   = "refresh_votes"
	ActionRevealVotes    = "reveal_votes"
	ActionResetVotes     = "reset_votes"
	ActionMessage        = "message"
)

// Notice codes for ActionMessage.
const (
	CodeSuccess = "success"
	CodeWarning = "warning"
	CodeError   = "error"
)

type ClientMessage struct {
	Action string `json:"action"`
	VoteID string `json:"vote_id,omitempty"`
	Value  int    `json:"value,omitempty"`
}

// ServerMessage is every outbound shape; Error true is terminal and
// tells the client to abandon the room.
type ServerMessage struct {
	Action      string          `json:"action,omitempty"`
	Code        string          `json:"code,omitempty"`
	Message     string          `json:"message,omitempty"`
	Votes       []game.VoteView `json:"votes,omitempty"`
	VoteChoices []deck.Choice   `json:"vote_choices,omitempty"`
	Error       bool            `json:"error,omitempty"`
}

func Notice(code, message string) ServerMessage {
	return ServerMessage{Action: ActionMessage, Code: code, Message: message}
}
