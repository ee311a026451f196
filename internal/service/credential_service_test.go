package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4, // bcrypt.MinCost keeps the suite fast
		},
	}
}

func newTestCredentialService() (*CredentialService, *repository.InMemoryUserRepository, *repository.InMemoryPasswordResetRepository) {
	users := repository.NewInMemoryUserRepository()
	resets := repository.NewInMemoryPasswordResetRepository()
	svc := NewCredentialService(testConfig(), CredentialDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
	})
	return svc, users, resets
}

func requireDomainError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
	assert.Equal(t, status, domainErr.HTTPStatus)
}

func TestRegister_IssuesTokenAndSanitizedUser(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	result, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, "Ada", result.User.FirstName)
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.User.ID)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "Passw0rd!")
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "a@x.com", "OtherPass1", "", "")
	requireDomainError(t, err, "CONFLICT", http.StatusConflict)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), "race@x.com", "Passw0rd!", "", "")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		require.Equal(t, "CONFLICT", domainErr.Code)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestLogin_Scenario(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "a@x.com", "WrongPass")
	requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)

	result, err := svc.Login(context.Background(), "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "a@x.com", result.User.Email)
}

func TestValidateUser_AbsenceScenarios(t *testing.T) {
	svc, users, _ := newTestCredentialService()

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		user, err := svc.ValidateUser(context.Background(), "a@x.com", "WrongPass")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("nonexistent email", func(t *testing.T) {
		user, err := svc.ValidateUser(context.Background(), "nobody@x.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("inactive user", func(t *testing.T) {
		stored, err := users.GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, users.Update(context.Background(), stored))

		user, err := svc.ValidateUser(context.Background(), "a@x.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	result, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)
	userID := result.User.ID

	t.Run("unknown user", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), "no-such-id", "Passw0rd!", "NewPass123")
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), userID, "WrongPass", "NewPass123")
		requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
	})

	t.Run("same password rejected", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), userID, "Passw0rd!", "Passw0rd!")
		requireDomainError(t, err, "BAD_REQUEST", http.StatusBadRequest)
	})

	t.Run("success rotates the credential", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(context.Background(), userID, "Passw0rd!", "NewPass123"))

		_, err := svc.Login(context.Background(), "a@x.com", "Passw0rd!")
		requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)

		_, err = svc.Login(context.Background(), "a@x.com", "NewPass123")
		require.NoError(t, err)
	})
}

func TestRequestPasswordReset_HidesExistence(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)

	known, err := svc.RequestPasswordReset(context.Background(), "a@x.com")
	require.NoError(t, err)
	unknown, err := svc.RequestPasswordReset(context.Background(), "nobody@x.com")
	require.NoError(t, err)

	assert.Equal(t, known, unknown)
	assert.Equal(t, ResetRequestedMessage, known)
}

func TestResetPassword(t *testing.T) {
	svc, _, resets := newTestCredentialService()

	_, err := svc.Register(context.Background(), "a@x.com", "Passw0rd!", "", "")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.ResetPassword(context.Background(), "nobody@x.com", "NewPass123", "")
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})

	t.Run("without token", func(t *testing.T) {
		msg, err := svc.ResetPassword(context.Background(), "a@x.com", "NewPass123", "")
		require.NoError(t, err)
		assert.Equal(t, ResetConfirmedMessage, msg)

		_, err = svc.Login(context.Background(), "a@x.com", "NewPass123")
		require.NoError(t, err)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := svc.ResetPassword(context.Background(), "a@x.com", "OtherPass1", "bogus-token")
		requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
	})

	t.Run("minted token is single use", func(t *testing.T) {
		_, err := svc.RequestPasswordReset(context.Background(), "a@x.com")
		require.NoError(t, err)

		token := lastResetToken(t, resets)
		_, err = svc.ResetPassword(context.Background(), "a@x.com", "TokenPass1", token.Token)
		require.NoError(t, err)

		_, err = svc.ResetPassword(context.Background(), "a@x.com", "TokenPass2", token.Token)
		requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := &domain.PasswordResetToken{
			UserID:    mustUserID(t, svc, "a@x.com", "TokenPass1"),
			Token:     "expired-token",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, resets.Create(context.Background(), expired))

		_, err := svc.ResetPassword(context.Background(), "a@x.com", "TokenPass3", "expired-token")
		requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
	})
}

func lastResetToken(t *testing.T, resets *repository.InMemoryPasswordResetRepository) *domain.PasswordResetToken {
	t.Helper()
	// The service logs the token instead of delivering it; tests reach
	// into the store the way the out-of-scope email flow would.
	token, err := resets.LastCreated(context.Background())
	require.NoError(t, err)
	return token
}

func mustUserID(t *testing.T, svc *CredentialService, email, password string) string {
	t.Helper()
	user, err := svc.ValidateUser(context.Background(), email, password)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user.ID
}
