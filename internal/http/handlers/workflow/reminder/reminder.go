// Package reminder реализует HTTP-обработчик повторного запуска напоминаний по подписке.
// Если напоминания уже идут, возвращается идентификатор текущего запуска.
package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

// Request тело запроса на запуск напоминаний.
type Request struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

// Service запуск напоминаний для подписки владельца.
type Service interface {
	TriggerReminder(ctx context.Context, requesterID, subscriptionID string) (string, error)
}

// Handler обрабатывает POST /workflows/subscription/reminder.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запустить напоминания о продлении
// @Tags Workflows
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Подписка"
// @Success 202 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 403 {object} response.ErrorResponse "Чужая подписка"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /workflows/subscription/reminder [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workflow.reminder"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requesterID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.Unauthorized("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(vErrs))
			return
		}
		response.Fail(w, r, log, err)
		return
	}

	runID, err := h.service.TriggerReminder(r.Context(), requesterID, req.SubscriptionID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("reminder workflow triggered",
		slog.String("subscription_id", req.SubscriptionID),
		slog.String("workflow_run_id", runID),
	)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"workflowRunId": runID,
	}))
}
