package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/userforge/user-service/internal/common"
)

const tokenValidity = 24 * time.Hour

// Claims is the JWT payload.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService issues and refreshes bearer tokens. It never mutates
// application state, so there is no store behind it beyond the user service.
type AuthService struct {
	users  *UserService
	secret []byte
}

func NewAuthService(users *UserService, secret []byte) *AuthService {
	return &AuthService{users: users, secret: secret}
}

// Login verifies the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.generateToken(user.ID, user.Username)
}

// Refresh exchanges a still-valid token for a fresh one.
func (s *AuthService) Refresh(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", common.ErrInvalidCredentials
	}
	return s.generateToken(claims.UserID, claims.Username)
}

func (s *AuthService) generateToken(userID, username string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenValidity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}
