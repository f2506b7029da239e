package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-login-service/internal/user"
)

// UserStore is the persistence surface the auth core depends on.
// *user.Repository satisfies it; tests provide in-memory fakes.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

// Mailer delivers the password recovery email. Implementations must not
// log the reset token.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}
