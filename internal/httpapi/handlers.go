package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/admission"
)

type createRoomRequest struct {
	Password string `json:"password"`
}

type joinRoomRequest struct {
	Room     string `json:"room"`
	Password string `json:"password"`
	Voter    string `json:"voter"`
}

type idResponse struct {
	ID string `json:"id"`
}

func CreateRoom(adm *admission.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFieldError(w, &admission.FieldError{Field: "password", Reason: "Invalid request body."})
			return
		}

		id, err := adm.CreateRoom(req.Password)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	}
}

func JoinRoom(adm *admission.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFieldError(w, &admission.FieldError{Field: "room", Reason: "Invalid request body."})
			return
		}

		id, err := adm.JoinRoom(req.Room, req.Password, req.Voter)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, idResponse{ID: id})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var fieldErr *admission.FieldError
	if errors.As(err, &fieldErr) {
		writeFieldError(w, fieldErr)
		return
	}
	log.Error("request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// writeFieldError reports a validation failure as {field: reason}.
func writeFieldError(w http.ResponseWriter, err *admission.FieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]string{err.Field: err.Reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
