// Package subscriptiontracker собирает HTTP API: хранилище, кеш, клиент Temporal, сервисы и маршруты.
package subscriptiontracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signout"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/health"
	subcreate "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/create"
	sublist "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/list"
	userlist "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/user/list"
	userread "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/user/read"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/workflow/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	authservice "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	userservice "github.com/magabrotheeeer/subscription-tracker/internal/services/user"
)

// Services зависимости маршрутов.
type Services struct {
	Auth          *authservice.Service
	Users         *userservice.Service
	Subscriptions *subservice.Service
	Limiter       *middlewarectx.RateLimiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware. Лимит считается по адресу TCP-соединения,
	// заголовки X-Forwarded-For и X-Real-IP клиента не учитываются.
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
		s.Limiter.Middleware(logger),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Handler)

		// Открытые конечные точки
		r.Post("/auth/sign-up", signup.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/sign-in", signin.New(logger, s.Auth).ServeHTTP)
		r.Get("/users", userlist.New(logger, s.Users).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Post("/auth/sign-out", signout.New(logger, s.Auth).ServeHTTP)
			r.Get("/users/{id}", userread.New(logger, s.Users).ServeHTTP)
			r.Post("/subscriptions", subcreate.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/user/{id}", sublist.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/workflows/subscription/reminder", reminder.New(logger, s.Subscriptions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
