package routes

import (
	"net/http"

	"masochat/masochat/controllers"
	"masochat/masochat/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the chat widget API the way the browser client expects it.
func NewRouter(chatCtrl *controllers.ChatController, healthCtrl *controllers.HealthController) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestMiddleware)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(healthCtrl))
	r.Mount("/api/chat", ChatRoutes(chatCtrl))
	return r
}
