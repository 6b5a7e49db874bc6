package auth

import "context"

// RoleAdmin is the only role issued today.
const RoleAdmin = "admin"

// Principal is an authenticated caller.
type Principal struct {
	Email string
	Role  string
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (static
// admin credentials, an operator directory, OAuth, etc.) without changing
// the service layer code.
type Authenticator interface {
	// Authenticate verifies the credentials and returns the principal if successful.
	Authenticate(ctx context.Context, email, credential string) (*Principal, error)
}
