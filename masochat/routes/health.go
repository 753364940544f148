package routes

import (
	"time"

	"masochat/masochat/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func HealthRoutes(ctrl *controllers.HealthController) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(5 * time.Second))
	r.Get("/", ctrl.HealthCheck)
	return r
}
