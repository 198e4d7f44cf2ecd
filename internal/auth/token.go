// Package auth issues and verifies the bearer tokens that identify the
// current user, and keeps the list of tokens revoked by logout.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims are the JWT claims of a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Token is a freshly signed token with the values needed to revoke it.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenService signs and parses HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a TokenService. A zero ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID.
func (s *TokenService) Issue(userID string) (Token, error) {
	if userID == "" {
		return Token{}, core.ErrUnauthorized
	}
	now := s.now()
	exp := now.Add(s.ttl)
	jti := uuid.NewString()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ID: jti, ExpiresAt: exp}, nil
}

// Parse verifies raw and returns its claims. Expired tokens yield
// core.ErrTokenExpired; every other failure yields core.ErrUnauthorized.
func (s *TokenService) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, core.ErrUnauthorized
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, core.ErrUnauthorized
	}
	return claims, nil
}
