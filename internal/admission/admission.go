package admission

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pokerdeck/planning-poker-backend/internal/game"
	"github.com/pokerdeck/planning-poker-backend/internal/registry"
	"github.com/pokerdeck/planning-poker-backend/internal/session"
)

const (
	maxPasswordLen = 30
	maxNameLen     = 20
)

// FieldError is a validation or authorization failure attributed to a
// single request field, serialized as {field: reason}.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Service admits rooms and voters. It owns password verification; the
// registry and sessions never see clear-text passwords.
type Service struct {
	reg *registry.Registry
	log *zap.Logger
}

func NewService(reg *registry.Registry, log *zap.Logger) *Service {
	return &Service{reg: reg, log: log}
}

// CreateRoom materializes a new room and returns its id. The password
// may be empty; it is stored hashed either way.
func (s *Service) CreateRoom(password string) (string, error) {
	if len(password) > maxPasswordLen {
		return "", &FieldError{Field: "password", Reason: "Ensure this field has no more than 30 characters."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	reply := make(chan *registry.Room, 1)
	s.reg.Inbox() <- registry.CreateRoom{PasswordHash: string(hash), Reply: reply}
	room := <-reply

	return room.ID, nil
}

// JoinRoom validates the join request and admits a new voter, returning
// the voter id. That id is the bearer credential for every subsequent
// command by this participant.
func (s *Service) JoinRoom(roomID, password, name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", &FieldError{Field: "voter", Reason: "This field may not be blank."}
	case len(name) > maxNameLen:
		return "", &FieldError{Field: "voter", Reason: "Ensure this field has no more than 20 characters."}
	}
	if len(password) > maxPasswordLen {
		return "", &FieldError{Field: "password", Reason: "Ensure this field has no more than 30 characters."}
	}

	roomReply := make(chan *registry.Room, 1)
	s.reg.Inbox() <- registry.GetRoom{ID: roomID, Reply: roomReply}
	room := <-roomReply
	if room == nil {
		return "", &FieldError{Field: "room", Reason: "Room doesn't exist."}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)); err != nil {
		return "", &FieldError{Field: "password", Reason: "Invalid password."}
	}

	reply := make(chan session.AddVoterReply, 1)
	room.Session.Inbox() <- session.AddVoter{Name: name, Reply: reply}
	res := <-reply
	if res.Err != nil {
		if errors.Is(res.Err, game.ErrNameTaken) {
			return "", &FieldError{Field: "voter", Reason: "This name is already reserved by another voter."}
		}
		return "", res.Err
	}

	s.log.Info("voter admitted", zap.String("room", room.ID), zap.String("voter", res.Voter.ID))
	return res.Voter.ID, nil
}
