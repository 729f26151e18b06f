// Package jwt выпускает и проверяет JWT токены доступа.
//
// Токен содержит идентификатор пользователя и собственный идентификатор (jti),
// по которому выход из системы заносит токен в чёрный список до истечения срока.
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор JWT токенов.
type Maker interface {
	GenerateToken(userID string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HS256 секретным ключом.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
