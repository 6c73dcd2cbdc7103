package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authApp() *fiber.App {
	app := fiber.New()
	handler := NewAuthHandler("support", "hunter2", "test-secret", 24)
	app.Post("/api/verify-credentials", handler.HandleVerifyCredentials)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestVerifyCredentialsIssuesToken(t *testing.T) {
	app := authApp()

	resp := postJSON(t, app, "/api/verify-credentials", map[string]string{
		"username": "support",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Authenticated bool   `json:"authenticated"`
		Token         string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Authenticated)
	require.NotEmpty(t, body.Token)

	token, err := jwt.Parse(body.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "support", claims["sub"])
	assert.NotNil(t, claims["exp"])
}

func TestVerifyCredentialsRejectsBadPassword(t *testing.T) {
	app := authApp()

	resp := postJSON(t, app, "/api/verify-credentials", map[string]string{
		"username": "support",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Authenticated)
}

func TestVerifyCredentialsRejectsBadUsername(t *testing.T) {
	app := authApp()

	resp := postJSON(t, app, "/api/verify-credentials", map[string]string{
		"username": "admin",
		"password": "hunter2",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
