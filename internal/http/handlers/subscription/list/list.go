// Package list реализует HTTP-обработчик получения подписок пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Service чтение подписок владельца.
type Service interface {
	ListByUser(ctx context.Context, requesterID, userID string) ([]*models.Subscription, error)
}

// Handler обрабатывает GET /subscriptions/user/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подписки пользователя
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response{data=[]models.Subscription}
// @Failure 401 {object} response.ErrorResponse "Чужой аккаунт"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /subscriptions/user/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requesterID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.Unauthorized("unauthorized"))
		return
	}

	subs, err := h.service.ListByUser(r.Context(), requesterID, chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	log.Info("subscriptions listed", slog.Int("count", len(subs)))
	render.JSON(w, r, response.StatusOKWithData(subs))
}
