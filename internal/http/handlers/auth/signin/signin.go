// Package signin реализует HTTP-обработчик входа пользователя.
package signin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Service вход по email и паролю.
type Service interface {
	SignIn(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
}

// Handler обрабатывает POST /auth/sign-in.
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
// @Summary Вход пользователя
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.Credentials true "Email и пароль"
// @Success 200 {object} response.Response{data=models.AuthResult}
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /auth/sign-in [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signin"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(creds); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(vErrs))
			return
		}
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.SignIn(r.Context(), creds)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user signed in", slog.String("user_id", res.User.ID))
	render.JSON(w, r, response.StatusOKWithData(res))
}
