// Package auth содержит бизнес-логику регистрации, входа, выхода и проверки JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/password"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает сохранённую запись.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByEmail возвращает пользователя по email или repository.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenStore чёрный список отозванных токенов.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	tokens   TokenStore
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, tokens TokenStore, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// NormalizeEmail приводит email к нижнему регистру без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp регистрирует пользователя и сразу выдаёт ему токен.
// Если пользователь с таким email уже существует, возвращает ошибку 409.
func (s *Service) SignUp(ctx context.Context, req models.DummyUser) (*models.AuthResult, error) {
	const op = "services.auth.SignUp"

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return nil, apperr.Validation("name must be between 2 and 50 characters")
	}
	email := NormalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, apperr.Validation("please fill a valid email address")
	}
	if len(req.Password) < 4 {
		return nil, apperr.Validation("password must be at least 4 characters")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("user already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(http.StatusBadRequest, "invalid password", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Duplicate(err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user signed up", slog.String("user_id", user.ID))
	return &models.AuthResult{Token: token, User: user}, nil
}

// SignIn проверяет email и пароль и выдаёт новый токен.
func (s *Service) SignIn(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	const op = "services.auth.SignIn"

	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(creds.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := password.CompareHash(user.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, apperr.Unauthorized("invalid password")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.AuthResult{Token: token, User: user}, nil
}

// SignOut отзывает токен до истечения его срока действия.
func (s *Service) SignOut(ctx context.Context, token string) error {
	const op = "services.auth.SignOut"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return apperr.Wrap(http.StatusUnauthorized, "unauthorized", err)
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.tokens.RevokeToken(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user signed out", slog.String("user_id", claims.UserID))
	return nil
}

// ValidateToken проверяет подпись и срок токена, а также что он не был отозван.
func (s *Service) ValidateToken(ctx context.Context, token string) (*jwt.CustomClaims, error) {
	const op = "services.auth.ValidateToken"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.Wrap(http.StatusUnauthorized, "unauthorized", err)
	}
	revoked, err := s.tokens.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.log.Error("failed to check token denylist", sl.Op(op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, apperr.Unauthorized("token has been revoked")
	}
	return claims, nil
}
