package game

import (
	"errors"
	"slices"

	"github.com/pokerdeck/planning-poker-backend/internal/deck"
)

var ErrUnknownVoter = errors.New("unknown voter")
var ErrInvalidChoice = errors.New("invalid vote value")
var ErrVotingClosed = errors.New("votes already revealed")
var ErrRevealNotReady = errors.New("not every voter has voted")
var ErrNameTaken = errors.New("name already taken")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Voter is one participant and their vote for the current round.
// Value is only meaningful while HasVoted is true.
type Voter struct {
	ID       string
	Name     string
	HasVoted bool
	Value    int
}

// State is a round of a single room. Voters keep join order.
type State struct {
	Voters   []Voter
	Revealed bool
}

func NewEmptyState() State {
	return State{Voters: []Voter{}}
}

type CommandType string

const (
	CmdJoin   CommandType = "Join"
	CmdVote   CommandType = "Vote"
	CmdReveal CommandType = "Reveal"
	CmdReset  CommandType = "Reset"
)

type Command struct {
	Type    CommandType
	VoterID string
	Name    string
	Value   int
}

type EventType string

const (
	EvtVoterJoined   EventType = "VoterJoined"
	EvtVoteRecorded  EventType = "VoteRecorded"
	EvtVotesRevealed EventType = "VotesRevealed"
	EvtVotesReset    EventType = "VotesReset"
)

type Event struct {
	Type    EventType
	VoterID string
}

// Apply runs cmd against s and returns the resulting events and state.
// s is never mutated; on error the returned state is s unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		for _, v := range s.Voters {
			if v.Name == cmd.Name {
				return nil, s, ErrNameTaken
			}
		}
		newState := s
		newState.Voters = append(slices.Clone(s.Voters), Voter{ID: cmd.VoterID, Name: cmd.Name})
		events := []Event{{Type: EvtVoterJoined, VoterID: cmd.VoterID}}
		return events, newState, nil

	case CmdVote:
		idx := slices.IndexFunc(s.Voters, func(v Voter) bool { return v.ID == cmd.VoterID })
		if idx < 0 {
			return nil, s, ErrUnknownVoter
		}
		if s.Revealed {
			return nil, s, ErrVotingClosed
		}
		if !deck.Valid(cmd.Value) {
			return nil, s, ErrInvalidChoice
		}

		// Re-submission overwrites: last value wins.
		newState := s
		newState.Voters = slices.Clone(s.Voters)
		newState.Voters[idx].HasVoted = true
		newState.Voters[idx].Value = cmd.Value
		events := []Event{{Type: EvtVoteRecorded, VoterID: cmd.VoterID}}
		return events, newState, nil

	case CmdReveal:
		if !CanReveal(s) {
			return nil, s, ErrRevealNotReady
		}
		newState := s
		newState.Revealed = true
		events := []Event{{Type: EvtVotesRevealed}}
		return events, newState, nil

	case CmdReset:
		// Always allowed, even when already voting.
		newState := s
		newState.Voters = slices.Clone(s.Voters)
		for i := range newState.Voters {
			newState.Voters[i].HasVoted = false
			newState.Voters[i].Value = 0
		}
		newState.Revealed = false
		events := []Event{{Type: EvtVotesReset}}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// CanReveal reports whether the round is eligible for reveal: at least
// one voter exists and every voter has voted.
func CanReveal(s State) bool {
	if len(s.Voters) == 0 {
		return false
	}
	for _, v := range s.Voters {
		if !v.HasVoted {
			return false
		}
	}
	return true
}

// VoteView is the per-voter projection sent to clients. Value stays
// nil until the round is revealed, regardless of the stored vote.
type VoteView struct {
	Voter string `json:"voter"`
	Voted bool   `json:"voted"`
	Value *int   `json:"value"`
}

// Votes builds the broadcast projection of s, masking values while the
// round is still voting.
func Votes(s State) []VoteView {
	views := make([]VoteView, 0, len(s.Voters))
	for _, v := range s.Voters {
		view := VoteView{Voter: v.Name, Voted: v.HasVoted}
		if s.Revealed && v.HasVoted {
			value := v.Value
			view.Value = &value
		}
		views = append(views, view)
	}
	return views
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
