// Package auth authenticates API callers with HS256 bearer tokens and makes
// the caller's user ID available through the request context.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSigningKey = errors.New("jwt signing key is required")
	ErrMissingToken      = errors.New("missing bearer token")
	ErrInvalidToken      = errors.New("invalid bearer token")
	ErrNoCallerInContext = errors.New("no authenticated caller in context")
)

type Config struct {
	SigningKey  string        `env:"JWT_SIGNING_KEY,required"`
	TokenExpiry time.Duration `env:"JWT_TOKEN_EXPIRY" envDefault:"24h"`
	Issuer      string        `env:"JWT_ISSUER" envDefault:"careerforge"`
}

// Service issues and validates access tokens.
type Service struct {
	key    []byte
	expiry time.Duration
	issuer string
}

func NewService(cfg Config) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &Service{
		key:    []byte(cfg.SigningKey),
		expiry: cfg.TokenExpiry,
		issuer: cfg.Issuer,
	}, nil
}

// IssueToken creates a signed access token for the given user.
func (s *Service) IssueToken(userID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// ParseToken validates a token and returns the caller's user ID.
func (s *Service) ParseToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	return userID, nil
}

type callerCtxKey struct{}

// WithCaller stores the authenticated caller's user ID in the context.
func WithCaller(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, userID)
}

// CallerFromContext retrieves the authenticated caller's user ID.
func CallerFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(callerCtxKey{}).(uuid.UUID)
	return userID, ok
}
