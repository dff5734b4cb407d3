// Package auth guards the administrative endpoints: one bcrypt-hashed admin
// password exchanged for a short-lived HS256 token.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates a wrong admin password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates a valid token without the admin role.
	ErrForbidden = errors.New("forbidden")
)

// Authenticator checks the admin password and issues tokens.
type Authenticator struct {
	passwordHash []byte
	tokens       *TokenService
}

// NewAuthenticator returns an authenticator for the given bcrypt hash.
func NewAuthenticator(passwordHash string, tokens *TokenService) *Authenticator {
	return &Authenticator{passwordHash: []byte(passwordHash), tokens: tokens}
}

// Login exchanges the admin password for a token.
func (a *Authenticator) Login(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	return a.tokens.GenerateToken(RoleAdmin)
}

// Authorize accepts a bearer token that carries the admin role.
func (a *Authenticator) Authorize(token string) (*Claims, error) {
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return claims, nil
}

// HashPassword produces a bcrypt hash suitable for the admin password setting.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password: empty password")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
