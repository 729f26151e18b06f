// Package apperr описывает доменные ошибки, которые несут HTTP-статус и сообщение для клиента.
//
// Сервисы возвращают *Error для ожидаемых ситуаций (валидация, не найдено, нет прав),
// а HTTP-слой переводит их в ответ через HTTPStatus. Любая другая ошибка считается внутренней.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// MsgInternal текст ответа для непредвиденных ошибок.
const MsgInternal = "internal server error"

// Error доменная ошибка со статусом ответа.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку с произвольным статусом.
func New(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap создаёт ошибку со статусом, сохраняя исходную причину.
func Wrap(code int, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation ошибка некорректных входных данных (400).
func Validation(msg string) *Error {
	return New(http.StatusBadRequest, msg)
}

// NotFound ресурс не найден (404).
func NotFound(msg string) *Error {
	return New(http.StatusNotFound, msg)
}

// Unauthorized запрос без подтверждённой личности или не владельцем ресурса (401).
func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, msg)
}

// Forbidden доступ к чужому ресурсу (403).
func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, msg)
}

// Conflict ресурс уже существует (409).
func Conflict(msg string) *Error {
	return New(http.StatusConflict, msg)
}

// Duplicate нарушение уникального ключа в хранилище (400).
func Duplicate(err error) *Error {
	return Wrap(http.StatusBadRequest, "duplicate field value entered", err)
}

// HTTPStatus возвращает статус и сообщение для ответа клиенту.
// Для ошибок, не являющихся *Error, возвращает 500 и общий текст.
func HTTPStatus(err error) (int, string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, MsgInternal
}

// Is сообщает, является ли err доменной ошибкой с указанным статусом.
func Is(err error, code int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
