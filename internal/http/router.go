package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/caja/internal/auth"
	"github.com/MrJamesThe3rd/caja/internal/http/movement"
	"github.com/MrJamesThe3rd/caja/internal/http/shift"
)

type Options struct {
	// Tokens authenticates operators. Nil leaves the API open.
	Tokens         *auth.Tokens
	AllowedOrigins []string
}

func New(
	shiftsV1 *shift.Handler,
	movementsV1 *movement.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.Tokens))

		r.Route("/shifts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			shiftsV1.Routes(r)
		})

		r.Route("/movements", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			movementsV1.Routes(r)
		})
	})

	return router
}
