// Package password хэширует пароли bcrypt и сверяет их с сохранённым хэшем.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost стоимость bcrypt, соответствует genSalt(10).
const Cost = 10

// ErrMismatch пароль не совпадает с хэшем.
var ErrMismatch = errors.New("password does not match")

// GetHash возвращает bcrypt-хэш пароля для хранения в базе.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сверяет пароль с хэшем. Несовпадение возвращается как ErrMismatch,
// остальные ошибки (например, повреждённый хэш) оборачиваются как есть.
func CompareHash(hash, password string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
