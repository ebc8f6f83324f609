package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/admission"
	"github.com/pokerdeck/planning-poker-backend/internal/registry"
	"github.com/pokerdeck/planning-poker-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, adm *admission.Service, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/create-room", CreateRoom(adm, log))
	r.Post("/join-room", JoinRoom(adm, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws/room/{roomID}", ws.Handler(reg, log))
	return r
}
