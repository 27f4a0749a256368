package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/config"
	"github.com/finvault/transaction-service/internal/models"
	"github.com/finvault/transaction-service/internal/repository"
	"github.com/finvault/transaction-service/internal/utils"
)

// Token type claims
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// UserStore is the persistence surface the auth service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Mailer sends account notification emails.
type Mailer interface {
	SendWelcome(to string) error
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	users  UserStore
	log    *logrus.Logger
	cfg    *config.Config
	mailer Mailer
}

// NewAuthService initializes a new auth service. mailer may be nil when
// SMTP is not configured.
func NewAuthService(users UserStore, log *logrus.Logger, cfg *config.Config, mailer Mailer) *AuthService {
	return &AuthService{users: users, log: log, cfg: cfg, mailer: mailer}
}

// Register creates a new user with a hashed password
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.NewValidationError("email", "must be a valid email address")
	}
	if err := utils.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrEmailTaken
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The unique index is the authority; the EmailExists pre-check
		// only narrows the race window.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.ErrEmailTaken
		}
		return nil, err
	}

	if s.mailer != nil {
		go func(addr string) {
			if err := s.mailer.SendWelcome(addr); err != nil {
				s.log.Warnf("Failed to send welcome email to %s: %v", addr, err)
			}
		}(user.Email)
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns an access/refresh token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	tokens, err := s.issueTokenPair(user.ID)
	if err != nil {
		return nil, err
	}
	s.log.Infof("User logged in: %s", user.Email)
	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	userID, err := s.verifyToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	// The subject must still resolve to a live account.
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}
	return s.issueTokenPair(userID)
}

// VerifyAccessToken validates a bearer access token and returns the
// subject user id.
func (s *AuthService) VerifyAccessToken(token string) (string, error) {
	return s.verifyToken(token, tokenTypeAccess)
}

// CurrentUser loads the user record behind an authenticated request
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindUserByID(ctx, userID)
}

type tokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueTokenPair(userID string) (*models.TokenResponse, error) {
	access, err := s.issueToken(userID, tokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueToken(userID, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) issueToken(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.GetSigningMethod(s.cfg.JWTAlgorithm), claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) verifyToken(tokenString, wantType string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{s.cfg.JWTAlgorithm}))
	if err != nil {
		return "", models.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.TokenType != wantType || claims.Subject == "" {
		return "", models.ErrInvalidToken
	}
	return claims.Subject, nil
}
