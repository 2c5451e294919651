// Package auth resolves connection credentials to user identities.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is malformed or its signature is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is a resolved user identity.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Claims represents the custom claims carried in access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Resolver validates bearer tokens and resolves them to identities.
// A missing token resolves to a generated anonymous guest identity; a
// present but invalid token is rejected.
type Resolver struct {
	secret []byte
	issuer string
}

// NewResolver creates a Resolver with the given HMAC secret and issuer.
func NewResolver(secret []byte, issuer string) *Resolver {
	return &Resolver{secret: secret, issuer: issuer}
}

// Resolve returns the identity for a credential token. An empty token
// yields an anonymous guest identity.
func (r *Resolver) Resolve(token string) (Identity, error) {
	if token == "" {
		return guestIdentity(), nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	name := claims.Name
	if name == "" {
		name = "Anonymous"
	}

	return Identity{
		ID:    claims.UserID,
		Name:  name,
		Email: claims.Email,
	}, nil
}

// IssueToken creates a signed access token for the given identity,
// valid for the given duration.
func (r *Resolver) IssueToken(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: identity.ID,
		Name:   identity.Name,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// guestIdentity generates an anonymous identity for tokenless connections.
func guestIdentity() Identity {
	id := uuid.New().String()
	return Identity{
		ID:   "guest-" + id[:8],
		Name: "Anonymous",
	}
}
