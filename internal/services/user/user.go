// Package user содержит бизнес-логику чтения профилей пользователей.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// Repository чтение пользователей из хранилища.
type Repository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Service выдаёт списки и профили пользователей.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List возвращает всех пользователей без хэшей паролей.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	const op = "services.user.List"
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Get возвращает профиль пользователя. Смотреть можно только свой профиль.
func (s *Service) Get(ctx context.Context, requesterID, id string) (*models.User, error) {
	const op = "services.user.Get"
	u, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.ID != requesterID {
		s.log.Warn("user profile access denied", slog.String("requester", requesterID), slog.String("user_id", id))
		return nil, apperr.Forbidden("you can only view your own profile")
	}
	return u, nil
}
