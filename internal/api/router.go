package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api/handlers"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api/middleware"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
)

func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	gameHandler := handlers.NewGameHandler(services.Game)
	wsHandler := handlers.NewWSHandler(services.Game, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Route("/game", func(r chi.Router) {
				r.Post("/auto-match", gameHandler.JoinAutoMatch)
				r.Post("/rooms", gameHandler.CreatePrivateRoom)
				r.Post("/rooms/{roomID}/join", gameHandler.JoinPrivateRoom)
				r.Post("/rooms/{roomID}/start", gameHandler.StartPrivateRoom)
				r.Post("/answer", gameHandler.SubmitAnswer)
				r.Post("/leave", gameHandler.Leave)
				r.Get("/room", gameHandler.CurrentRoom)

				r.Get("/ws", wsHandler.Stream)
			})
		})
	})

	return r
}
