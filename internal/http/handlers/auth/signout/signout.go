// Package signout реализует HTTP-обработчик выхода: токен запроса отзывается до истечения срока.
package signout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

// Service отзыв токена.
type Service interface {
	SignOut(ctx context.Context, token string) error
}

// Handler обрабатывает POST /auth/sign-out.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /auth/sign-out [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token, ok := middlewarectx.TokenFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.Unauthorized("unauthorized"))
		return
	}
	if err := h.service.SignOut(r.Context(), token); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "signed out",
	}))
}
