package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager provides logic for JWT & Refresh tokens generation and parsing.
type TokenManager interface {
	NewJWT(claims domain.SessionClaims) (string, time.Duration, error)
	Parse(accessToken string) (*domain.SessionClaims, error)
	NewRefreshToken() (uuid.UUID, time.Duration, error)
	ValidateRefreshToken(refreshToken string) (*uuid.UUID, error)
}

// Claims is the wire form of domain.SessionClaims inside the access token.
type Claims struct {
	jwt.RegisteredClaims
	Name             string `json:"name,omitempty"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	Provider         string `json:"provider,omitempty"`
}

type Manager struct {
	signingKey      string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewManager(cfg config.JWTConfig) (*Manager, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("empty signing key")
	}

	if cfg.AccessTokenTTL == 0 {
		return nil, errors.New("empty access token ttl")
	}

	if cfg.RefreshTokenTTL == 0 {
		return nil, errors.New("empty refresh token ttl")
	}

	return &Manager{
		signingKey:      cfg.SigningKey,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}, nil
}

func (m *Manager) NewJWT(claims domain.SessionClaims) (string, time.Duration, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTokenTTL)),
			Subject:   claims.UserID.String(),
		},
		Name:             claims.Name,
		Email:            claims.Email,
		Role:             string(claims.Role),
		TwoFactorEnabled: claims.TwoFactorEnabled,
		Provider:         claims.Provider,
	})

	accessToken, err := token.SignedString([]byte(m.signingKey))
	if err != nil {
		return "", 0, errors.New("sign jwt failed")
	}

	return accessToken, m.accessTokenTTL, nil
}

func (m *Manager) Parse(accessToken string) (*domain.SessionClaims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(accessToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(m.signingKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject uuid parse: %w", err)
	}

	return &domain.SessionClaims{
		UserID:           userID,
		Name:             claims.Name,
		Email:            claims.Email,
		Role:             domain.UserRole(claims.Role),
		TwoFactorEnabled: claims.TwoFactorEnabled,
		Provider:         claims.Provider,
	}, nil
}

func (m *Manager) NewRefreshToken() (uuid.UUID, time.Duration, error) {
	refreshToken, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("new refresh token failed: %w", err)
	}
	return refreshToken, m.refreshTokenTTL, nil
}

func (m *Manager) ValidateRefreshToken(refreshToken string) (*uuid.UUID, error) {
	id, err := uuid.Parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token uuid parse: %w", err)
	}

	return &id, nil
}
