package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrNotConfigured      = errors.New("admin credentials are not configured")
)

// PasswordAuthenticator checks credentials against a single configured
// admin account whose password is stored as a bcrypt hash.
type PasswordAuthenticator struct {
	email        string
	passwordHash []byte
}

// NewPasswordAuthenticator creates an authenticator for the given admin
// email and bcrypt hash. An empty hash disables logins.
func NewPasswordAuthenticator(email, passwordHash string) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash to put in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if err := ValidateCredential(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Authenticate verifies the email and password, returning the admin principal if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*Principal, error) {
	if a.email == "" || len(a.passwordHash) == 0 {
		return nil, ErrNotConfigured
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1

	// Compare password hash even on an email mismatch so both paths cost the same.
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(credential))
	if !emailOK || passwordErr != nil {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Email: a.email, Role: RoleAdmin}, nil
}
