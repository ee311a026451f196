package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/queue"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}

	users := repository.NewInMemoryUserRepository()
	resets := repository.NewInMemoryPasswordResetRepository()

	credentials := service.NewCredentialService(cfg, service.CredentialDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
	})
	profiles := service.NewProfileService(users)
	queueService := service.NewQueueService(queue.NewMemoryQueue(), nil, nil)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("account-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(credentials),
		Users:          handlers.NewUsersHandler(profiles),
		Queue:          handlers.NewQueueHandler(queueService),
		AuthMiddleware: auth.NewMiddleware(credentials.TokenManager(), users),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	require.Equal(t, nethttp.StatusCreated, status, "register: %v", body)
	return body["accessToken"].(string)
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"email":     "a@x.com",
		"password":  "Passw0rd!",
		"firstName": "Ada",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.NotEmpty(t, body["accessToken"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")

	status, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"email":    "a@x.com",
		"password": "WrongPass",
	})
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"email":    "a@x.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotEmpty(t, body["accessToken"])
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "a@x.com", "Passw0rd!")

	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"email":    "a@x.com",
		"password": "OtherPass1",
	})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])
}

func TestRegister_ValidationFailure(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	details := errBody["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestProfileEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "a@x.com", "Passw0rd!")

	status, _ := doJSON(t, app, nethttp.MethodGet, "/users/profile", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body := doJSON(t, app, nethttp.MethodGet, "/users/profile", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "a@x.com", body["email"])

	status, body = doJSON(t, app, nethttp.MethodPatch, "/users/profile", token, fiber.Map{
		"firstName": "Grace",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Grace", body["firstName"])

	status, body = doJSON(t, app, nethttp.MethodPatch, "/users/email", token, fiber.Map{
		"email": "new@x.com",
	})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "new@x.com", body["email"])
}

func TestChangeEmail_ConflictWithOtherUser(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "a@x.com", "Passw0rd!")
	registerAndLogin(t, app, "b@x.com", "Passw0rd!")

	status, body := doJSON(t, app, nethttp.MethodPatch, "/users/email", token, fiber.Map{
		"email": "b@x.com",
	})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])

	// Re-asserting one's own email is allowed.
	status, _ = doJSON(t, app, nethttp.MethodPatch, "/users/email", token, fiber.Map{
		"email": "a@x.com",
	})
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestChangePasswordEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "a@x.com", "Passw0rd!")

	status, _ := doJSON(t, app, nethttp.MethodPost, "/auth/change-password", token, fiber.Map{
		"currentPassword": "Passw0rd!",
		"newPassword":     "Passw0rd!",
	})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = doJSON(t, app, nethttp.MethodPost, "/auth/change-password", token, fiber.Map{
		"currentPassword": "Passw0rd!",
		"newPassword":     "NewPass123",
	})
	require.Equal(t, nethttp.StatusOK, status)

	status, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"email":    "a@x.com",
		"password": "NewPass123",
	})
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestQueueEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, nethttp.MethodGet, "/test-queue/stats", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 0, body["total"])

	status, body = doJSON(t, app, nethttp.MethodPost, "/test-queue/add", "", fiber.Map{
		"message":  "m",
		"metadata": fiber.Map{"k": 1},
	})
	require.Equal(t, nethttp.StatusCreated, status)
	jobID := body["jobId"].(string)
	require.NotEmpty(t, jobID)

	status, body = doJSON(t, app, nethttp.MethodGet, fmt.Sprintf("/test-queue/job/%s", jobID), "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "waiting", body["state"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "m", data["message"])
	assert.EqualValues(t, 1, data["metadata"].(map[string]any)["k"])

	status, _ = doJSON(t, app, nethttp.MethodGet, "/test-queue/job/999", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, body = doJSON(t, app, nethttp.MethodGet, "/test-queue/stats", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 1, body["waiting"])
	assert.EqualValues(t, 1, body["total"])
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, nethttp.MethodGet, "/health", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["datetime"])
}
