// Package router собирает HTTP маршруты сервера
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinematch/cinematch/internal/server/handlers"
	"github.com/cinematch/cinematch/internal/server/middleware"
)

// Deps содержит зависимости для сборки маршрутов
type Deps struct {
	Logger      *slog.Logger
	Auth        *handlers.AuthHandler
	Movies      *handlers.MovieHandler
	Users       *handlers.UserHandler
	Health      *handlers.HealthHandler
	Guard       func(http.Handler) http.Handler
	RateLimiter *middleware.RateLimiter
}

// New собирает маршрутизатор. Списки каталога и вход открыты,
// карточки фильмов, оценки и профиль закрыты guard-слоем;
// health check идет мимо rate limit.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logging(d.Logger, "/healthz"))

	r.Get("/healthz", d.Health.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.RateLimiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/refresh", d.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(d.Guard)
				r.Post("/logout", d.Auth.Logout)
			})
		})

		// Списки каталога открыты, персональные операции закрыты
		r.Route("/movies", func(r chi.Router) {
			r.Get("/search", d.Movies.Search)
			r.Get("/trending", d.Movies.Trending)
			r.Get("/genres", d.Movies.Genres)
			r.Get("/top_rated", d.Movies.TopRated)

			r.Group(func(r chi.Router) {
				r.Use(d.Guard)
				r.Get("/{movieID}", d.Movies.Detail)
				r.Get("/{movieID}/similar", d.Movies.Similar)
				r.Post("/{movieID}/rate", d.Movies.Rate)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Guard)
			r.Get("/users/me", d.Users.Me)
		})
	})

	return r
}
