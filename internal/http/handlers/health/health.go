// Package health реализует проверку доступности API.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// Handler отвечает 200, пока процесс обслуживает запросы.
//
// @Summary Проверка доступности
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func Handler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"status": "ok"}))
}
