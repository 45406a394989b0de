package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-app/parley/internal/service/account"
)

func setupRouter() *chi.Mux {
	handler := New(account.NewService("test-secret", time.Hour))
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignupThenLogin(t *testing.T) {
	r := setupRouter()

	resp := post(t, r, "/signup", map[string]string{"username": "ada", "email": "ada@example.com", "password": "longenough"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var token TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&token))
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	resp = post(t, r, "/login", map[string]string{"email": "ada@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSignupErrors(t *testing.T) {
	r := setupRouter()

	resp := post(t, r, "/signup", map[string]string{"email": "bad", "password": "longenough"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = post(t, r, "/signup", map[string]string{"email": "a@b.co", "password": "longenough"})
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = post(t, r, "/signup", map[string]string{"email": "a@b.co", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = post(t, r, "/signup", map[string]string{"unexpected": "field"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := setupRouter()
	require.Equal(t, http.StatusCreated, post(t, r, "/signup", map[string]string{"email": "a@b.co", "password": "longenough"}).Code)

	resp := post(t, r, "/login", map[string]string{"email": "a@b.co", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

type capturedReset struct {
	token string
}

func (c *capturedReset) NotifyReset(_ context.Context, _, token string) error {
	c.token = token
	return nil
}

func TestForgotAndResetPassword(t *testing.T) {
	captured := &capturedReset{}
	r := chi.NewRouter()
	New(account.NewService("test-secret", time.Hour, account.WithResetNotifier(captured))).RegisterRoutes(r)
	require.Equal(t, http.StatusCreated, post(t, r, "/signup", map[string]string{"email": "a@b.co", "password": "longenough"}).Code)

	resp := post(t, r, "/forget-password", map[string]string{"email": "nobody@b.co"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = post(t, r, "/forget-password", map[string]string{"email": "a@b.co"})
	require.Equal(t, http.StatusOK, resp.Code)
	var msg MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "Password reset link sent to your email", msg.Message)
	require.NotEmpty(t, captured.token)

	resp = post(t, r, "/reset-password", map[string]string{"token": "garbage", "new_password": "brand-new-pass"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = post(t, r, "/reset-password", map[string]string{"token": captured.token, "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = post(t, r, "/reset-password", map[string]string{"token": captured.token, "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "Password reset successfully", msg.Message)

	assert.Equal(t, http.StatusUnauthorized, post(t, r, "/login", map[string]string{"email": "a@b.co", "password": "longenough"}).Code)
	assert.Equal(t, http.StatusOK, post(t, r, "/login", map[string]string{"email": "a@b.co", "password": "brand-new-pass"}).Code)
}
