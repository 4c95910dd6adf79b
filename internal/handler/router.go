package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/khanlabs/neurachat/backend/internal/handler/chat"
	"github.com/khanlabs/neurachat/backend/internal/handler/status"
	middlewarePkg "github.com/khanlabs/neurachat/backend/internal/middleware"
	"github.com/khanlabs/neurachat/backend/internal/policy"
	chatservice "github.com/khanlabs/neurachat/backend/internal/service/chat"
	"github.com/khanlabs/neurachat/backend/internal/service/conversation"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *chatservice.Service, orchestrator *conversation.Orchestrator, guard *policy.Guard) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(sessions, orchestrator, guard)
	statusHandler := status.New(guard, orchestrator)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		statusHandler.RegisterRoutes(api)
	})

	return r
}
