package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailNotFound      = errors.New("email not found")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	minPasswordLength = 8
	issuer            = "parley"
	purposeReset      = "password-reset"
	resetTTL          = 15 * time.Minute
)

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	passwordHash []byte
}

// Claims are carried by issued tokens. Access tokens have no purpose; reset tokens carry
// "password-reset" and are only accepted by ResetPassword.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Option customizes a Service.
type Option func(*Service)

// WithResetNotifier sets how reset tokens reach the account owner.
func WithResetNotifier(n ResetNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service registers users and issues HS256 bearer tokens.
type Service struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	notifier ResetNotifier

	mu         sync.RWMutex
	byEmail    map[string]*User
	usedResets map[string]struct{}
}

// NewService creates an account service signing tokens with secret.
func NewService(secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		secret:     []byte(secret),
		ttl:        ttl,
		now:        time.Now,
		notifier:   LogNotifier{},
		byEmail:    make(map[string]*User),
		usedResets: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a user and returns a token for them.
func (s *Service) Signup(_ context.Context, email, name, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		CreatedAt:    s.now().UTC(),
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		return "", ErrEmailTaken
	}
	s.byEmail[email] = user
	s.mu.Unlock()

	return s.sign(user, "", s.ttl)
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(_ context.Context, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	s.mu.RLock()
	user, ok := s.byEmail[email]
	var hash []byte
	if ok {
		hash = user.passwordHash
	}
	s.mu.RUnlock()
	if !ok {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.sign(user, "", s.ttl)
}

// Verify parses a token, with or without the "Bearer " prefix, and returns its user.
func (s *Service) Verify(_ context.Context, token string) (User, error) {
	claims, err := s.parse(token)
	if err != nil || claims.Purpose != "" {
		return User{}, ErrInvalidToken
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[claims.Email]
	if !ok || user.ID != claims.Subject {
		return User{}, ErrInvalidToken
	}
	return *user, nil
}

// ForgotPassword issues a short-lived reset token for email and hands it to the notifier.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	s.mu.RLock()
	user, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return ErrEmailNotFound
	}

	token, err := s.sign(user, purposeReset, resetTTL)
	if err != nil {
		return err
	}
	if err := s.notifier.NotifyReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("send reset token: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a token from ForgotPassword. Each token works once.
func (s *Service) ResetPassword(_ context.Context, token, newPassword string) error {
	claims, err := s.parse(token)
	if err != nil || claims.Purpose != purposeReset || claims.ID == "" {
		return ErrInvalidToken
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.usedResets[claims.ID]; used {
		return ErrInvalidToken
	}
	user, ok := s.byEmail[claims.Email]
	if !ok || user.ID != claims.Subject {
		return ErrUserNotFound
	}
	user.passwordHash = hash
	s.usedResets[claims.ID] = struct{}{}
	return nil
}

func (s *Service) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) sign(user *User, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email:   user.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if purpose != "" {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
