// Package service implements login and access token issuing.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"imobcrm_backend/internal/users/repository"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

const accessTokenType = "access"

const invalidCredentialsMessage = "email ou senha invalidos"

// UserReader is the repository surface the auth service needs.
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
}

// Service implements authentication.
type Service struct {
	users UserReader
	cfg   config.AuthServiceConfig
	log   *logger.Logger
}

// New creates a new auth service.
func New(users UserReader, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{users: users, cfg: cfg, log: log}
}

// LoginResult carries the issued token and the profile for the UI.
type LoginResult struct {
	AccessToken string
	User        repository.User
}

// Login verifies credentials and issues a signed access token.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Same answer for unknown email and wrong password.
		s.log.AuthEvent("login", email, false, "unknown email")
		return LoginResult{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plainPassword)); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return LoginResult{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	token, err := s.signJWT(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, apperr.Internal("failed to issue token")
	}

	s.log.AuthEvent("login", email, true, "")
	return LoginResult{AccessToken: token, User: user}, nil
}

// Profile returns the authenticated user's profile.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) signJWT(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": accessTokenType,
		"role": role,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
