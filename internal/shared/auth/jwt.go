package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleReviewer is the only role allowed past the moderation gate.
	RoleReviewer = "reviewer"

	// DefaultTTL is how long an issued reviewer credential stays valid.
	DefaultTTL = 8 * time.Hour
)

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Identity is the reviewer a credential is issued for.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// Claims represents the identity contained in a reviewer JWT.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the reviewer named by the claims.
func (c Claims) Identity() Identity {
	return Identity{Email: c.Email, Name: c.Name, Picture: c.Picture}
}

// Issuer signs and verifies HS256 reviewer credentials.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer. ttl <= 0 selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the lifetime of issued credentials.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign issues a reviewer credential for id.
func (i *Issuer) Sign(id Identity) (string, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return "", errors.New("email is required")
	}
	now := i.now().UTC()
	claims := Claims{
		Email:   email,
		Name:    id.Name,
		Picture: id.Picture,
		Role:    RoleReviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and role and returns the claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleReviewer || claims.Email == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
