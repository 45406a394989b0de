package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/service/account"
	"github.com/parley-app/parley/pkg/utils"
)

// Accounts 抽象账户业务，便于测试替换
type Accounts interface {
	Signup(ctx context.Context, email, name, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is returned by the password reset endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler 账户相关的HTTP处理器
type Handler struct {
	accounts Accounts
}

// New 创建账户处理器
func New(accounts Accounts) *Handler {
	return &Handler{accounts: accounts}
}

// RegisterRoutes 注册账户相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/forget-password", h.handleForgotPassword)
	r.Post("/reset-password", h.handleResetPassword)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.accounts.Signup(r.Context(), payload.Email, payload.Username, payload.Password)
	switch {
	case errors.Is(err, account.ErrInvalidEmail), errors.Is(err, account.ErrWeakPassword):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, account.ErrEmailTaken):
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("component", "auth").Msg("signup failed")
		utils.RespondError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.accounts.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("component", "auth").Msg("login failed")
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.accounts.ForgotPassword(r.Context(), payload.Email)
	switch {
	case errors.Is(err, account.ErrInvalidEmail):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, account.ErrEmailNotFound):
		utils.RespondError(w, http.StatusNotFound, "Email not found")
		return
	case err != nil:
		log.Error().Err(err).Str("component", "auth").Msg("forgot password failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not send reset link")
		return
	}

	utils.RespondJSON(w, http.StatusOK, MessageResponse{Message: "Password reset link sent to your email"})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.accounts.ResetPassword(r.Context(), payload.Token, payload.NewPassword)
	switch {
	case errors.Is(err, account.ErrInvalidToken):
		utils.RespondError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	case errors.Is(err, account.ErrWeakPassword):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, account.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		log.Error().Err(err).Str("component", "auth").Msg("reset password failed")
		utils.RespondError(w, http.StatusInternalServerError, "reset password failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}
