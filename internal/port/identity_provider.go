package port

import (
	"context"
	"errors"

	"github.com/rl1809/catrink/internal/core/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidResetCode   = errors.New("invalid or expired reset code")
	ErrIdentityDisabled   = errors.New("this account has been disabled")
)

type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// IdentityProvider is the hosted account system customers sign in with.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	SignOut(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
}

// IdentityDirectory is the back-office view of the accounts an
// IdentityProvider holds.
type IdentityDirectory interface {
	ListIdentities(ctx context.Context) ([]domain.User, error)
	// UpdateIdentity applies fn to the account for email. Only the name,
	// phone, address and status fields are kept.
	UpdateIdentity(ctx context.Context, email string, fn func(*domain.User) error) (domain.User, error)
}
