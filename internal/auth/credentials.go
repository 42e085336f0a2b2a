package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Verify for a wrong username or password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Credentials is the single operator account allowed to log in.
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials builds the operator account from a bcrypt hash, or from a
// plain password that is hashed here when no hash is configured.
func NewCredentials(username, passwordHash, password string) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("auth: username is required")
	}
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("auth: password hash: %w", err)
		}
		return &Credentials{username: username, hash: []byte(passwordHash)}, nil
	case password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password: %w", err)
		}
		return &Credentials{username: username, hash: hash}, nil
	default:
		return nil, errors.New("auth: a password or password hash is required")
	}
}

// Verify checks a login attempt.
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
