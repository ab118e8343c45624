package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidationAndConflict(t *testing.T) {
	_, app := newTestServer(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username": "x",
		"email":    "x@example.com",
		"password": "longenough",
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	registerAndLogin(t, app, "amira")

	// Same username again conflicts.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username": "amira",
		"email":    "other@example.com",
		"password": "longenough",
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, app := newTestServer(t)
	registerAndLogin(t, app, "amira")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/login", fiber.Map{
		"email":    "amira@example.com",
		"password": "wrong password",
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRegisterDoesNotLeakPasswordHash(t *testing.T) {
	_, app := newTestServer(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username": "amira",
		"email":    "amira@example.com",
		"password": "correct horse battery",
	}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	_, leaked := body["password_hash"]
	assert.False(t, leaked)
	_, leaked = body["PasswordHash"]
	assert.False(t, leaked)
}

func TestUsernameAvailability(t *testing.T) {
	_, app := newTestServer(t)
	registerAndLogin(t, app, "amira")

	var check struct {
		Available bool `json:"available"`
	}

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/usernames/amira/available", nil, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &check)
	assert.False(t, check.Available)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/usernames/unclaimed/available", nil, ""))
	require.NoError(t, err)
	decodeBody(t, resp, &check)
	assert.True(t, check.Available)
}
