package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-login-service/internal/logging"
	"github.com/redmonkez12/go-login-service/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrUserNotFound       = errors.New("user not found")
)

// Token is the login response body
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service implements the authentication and password-reset protocol.
// It returns tagged errors only; the HTTP layer translates them to status
// codes, which keeps the core independent of the routing framework.
type Service struct {
	users          UserStore
	tokens         *TokenService
	hasher         *PasswordHasher
	mailer         Mailer
	logger         *logging.Logger
	accessTokenTTL time.Duration
	resetTokenTTL  time.Duration
}

func NewService(
	users UserStore,
	tokens *TokenService,
	hasher *PasswordHasher,
	mailer Mailer,
	logger *logging.Logger,
	accessTokenTTL time.Duration,
	resetTokenTTL time.Duration,
) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		hasher:         hasher,
		mailer:         mailer,
		logger:         logger,
		accessTokenTTL: accessTokenTTL,
		resetTokenTTL:  resetTokenTTL,
	}
}

// Login verifies the credentials and mints a bearer access token.
// Unknown email and wrong password both return ErrInvalidCredentials; the
// unknown-email path still performs a hash verification so the two cases
// take comparable time.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.DummyVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, existing.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	if !existing.IsActive {
		return nil, ErrInactiveUser
	}

	accessToken, err := s.tokens.CreateAccessToken(existing.ID, s.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}, nil
}

// CurrentUser resolves a bearer token to the user it was issued for
func (s *Service) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	userID, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return s.UserByID(ctx, userID)
}

// UserByID loads a user and checks that the account is still usable
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !existing.IsActive {
		return nil, ErrInactiveUser
	}

	return existing, nil
}

// RecoverPassword mints a reset token for the account and mails it.
// A mailer failure is logged but does not change the outcome: the caller
// still gets the fixed confirmation. The token itself is never logged.
//
// The unknown-email case returns ErrUserNotFound, matching the behavior
// this service replaces. That does leak account existence; changing it to
// a uniform response is a product decision, not a code cleanup.
func (s *Service) RecoverPassword(ctx context.Context, email string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	resetToken, err := s.tokens.CreateResetToken(existing.Email, s.resetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, existing.Email, resetToken); err != nil {
		s.logger.Warn("failed to send password recovery email", "email", existing.Email, "error", err.Error())
	}

	return nil
}

// ResetPassword validates a reset token and replaces the password of the
// account the token was issued for. The token only authorizes a change
// for its embedded email. Persisting the hash is a single UPDATE, so a
// failure leaves the old password in place.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.tokens.VerifyResetToken(token)
	if err != nil {
		return ErrInvalidToken
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !existing.IsActive {
		return ErrInactiveUser
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, existing.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password updated", "user_id", existing.ID)

	// Access tokens issued before the reset stay valid until they expire:
	// they are stateless and there is no server-side revocation.
	return nil
}
