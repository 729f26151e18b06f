// Package list реализует HTTP-обработчик получения списка пользователей.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Service чтение всех пользователей.
type Service interface {
	List(ctx context.Context) ([]*models.User, error)
}

// Handler обрабатывает GET /users.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags Users
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.User}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.service.List(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	render.JSON(w, r, response.StatusOKWithData(users))
}
