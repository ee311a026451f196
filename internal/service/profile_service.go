package service

import (
	"context"
	"errors"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// ProfileUpdate carries the fields of a partial profile update. Nil
// fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// ProfileService orchestrates profile reads and updates.
type ProfileService struct {
	users repository.UserRepository
}

// NewProfileService builds the service.
func NewProfileService(users repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

// GetProfile returns the sanitized user.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateProfile applies only the fields present in the update.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	profile := user.Profile()
	return &profile, nil
}

// ChangeEmail moves the account to a new email address. Assigning the
// user's own current email is a no-op success; an email held by another
// user is a conflict.
func (s *ProfileService) ChangeEmail(ctx context.Context, userID, newEmail string) (*domain.Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, newEmail)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	if existing != nil && existing.ID != userID {
		return nil, apperrors.NewConflict("Email address already exists", nil)
	}

	user.Email = newEmail
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("Email address already exists", nil)
		}
		return nil, apperrors.MapError(err)
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *ProfileService) findUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
