package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// ResetRequestedMessage is returned for every reset request, whether or
// not the email exists. Callers must not be able to tell the difference.
const ResetRequestedMessage = "If the email exists, a password reset link has been sent"

// ResetConfirmedMessage acknowledges a completed password reset.
const ResetConfirmedMessage = "Password has been reset successfully"

// AuthResult bundles a freshly issued token with the sanitized user.
type AuthResult struct {
	AccessToken string         `json:"accessToken"`
	User        domain.Profile `json:"user"`
	ExpiresAt   time.Time      `json:"-"`
}

// CredentialService orchestrates registration, login and password flows.
type CredentialService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// CredentialDependencies encapsulates collaborator requirements.
type CredentialDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewCredentialService builds the service.
func NewCredentialService(cfg config.Config, deps CredentialDependencies) *CredentialService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new active account and issues a token.
func (s *CredentialService) Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("Email address already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The store's unique index is the authoritative guard against
		// concurrent registrations racing past the pre-check.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("Email address already exists", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{Type: events.EventUserRegistered, UserID: user.ID})
	}

	return s.issueToken(user)
}

// Login authenticates by email and password.
func (s *CredentialService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user == nil {
		return nil, apperrors.NewUnauthorized("Invalid email or password")
	}
	return s.issueToken(user)
}

// ValidateUser checks credentials against the active user with that
// email. Absence is the only negative signal: wrong password, unknown
// email and an inactive account all return (nil, nil).
func (s *CredentialService) ValidateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmailAndActive(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new
// hash. A new password equal to the current one is rejected.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return apperrors.MapError(err)
	}

	if !auth.VerifyPassword(currentPassword, user.PasswordHash) {
		return apperrors.NewUnauthorized("Current password is incorrect")
	}
	if currentPassword == newPassword {
		return apperrors.NewBadRequest("New password must be different from current password")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RequestPasswordReset mints a reset token when the email exists. The
// response is identical either way; delivery of the token is out of
// scope, so it is only logged at debug level.
func (s *CredentialService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ResetRequestedMessage, nil
	}
	if err != nil {
		return "", apperrors.MapError(err)
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", apperrors.MapError(err)
	}

	s.logger.Debug("password reset requested", zap.String("user_id", user.ID))
	return ResetRequestedMessage, nil
}

// ResetPassword stores a new password hash for the account with that
// email. When resetToken is non-empty it must match an unused, unexpired
// token minted by RequestPasswordReset.
func (s *CredentialService) ResetPassword(ctx context.Context, email, newPassword, resetToken string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return "", apperrors.MapError(err)
	}

	var consumed *domain.PasswordResetToken
	if resetToken != "" {
		consumed, err = s.validateResetToken(ctx, user.ID, resetToken)
		if err != nil {
			return "", err
		}
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return "", apperrors.MapError(err)
	}

	if consumed != nil {
		if err := s.resets.MarkUsed(ctx, consumed.ID); err != nil {
			return "", apperrors.MapError(err)
		}
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{Type: events.EventPasswordReset, UserID: user.ID})
	}
	return ResetConfirmedMessage, nil
}

func (s *CredentialService) validateResetToken(ctx context.Context, userID, tokenStr string) (*domain.PasswordResetToken, error) {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("invalid or expired reset token")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if token.UserID != userID || token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return nil, apperrors.NewUnauthorized("invalid or expired reset token")
	}
	return token, nil
}

func (s *CredentialService) issueToken(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{AccessToken: token, User: user.Profile(), ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *CredentialService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
