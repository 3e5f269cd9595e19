package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// UserService maintains the local mirror of identity-service accounts.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// SyncUser upserts an account snapshot. A user's role is fixed at creation:
// a snapshot that changes it is rejected.
func (s *UserService) SyncUser(ctx context.Context, user *domain.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return apperrors.Validation("user id is required")
	}
	if !domain.IsValidRole(user.Role) {
		return apperrors.Validation(fmt.Sprintf("unknown role %q", user.Role))
	}
	if strings.TrimSpace(user.Name) == "" {
		return apperrors.Validation("user name is required")
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Users.GetByIDForUpdate(ctx, user.ID)
		switch {
		case err == nil:
			if existing.Role != user.Role {
				return apperrors.Validation(fmt.Sprintf("role of user %s cannot change from %s to %s", user.ID, existing.Role, user.Role))
			}
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("get user: %w", err)
		}

		if err := repos.Users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user synced",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return nil
}

// GetProfile returns the public profile of a user, including its rating
// aggregate.
func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.PublicProfile, error) {
	user, err := s.store.Repositories().Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}
