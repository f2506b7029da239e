package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Token purposes. A token minted for one purpose never verifies under the
// other: VerifyAccessToken rejects reset tokens and vice versa.
const (
	purposeAccess        = "access"
	purposePasswordReset = "password-reset"
)

// clockSkew is the tolerance applied to not-before and expiry checks so
// that slightly desynchronized clocks do not reject fresh tokens.
const clockSkew = 30 * time.Second

// TokenService mints and validates the two token classes as PASETO
// v4.local envelopes (symmetric encryption with XChaCha20-Poly1305).
// Tokens are self-describing: subject, issued-at, not-before, expiry and
// purpose all live inside the envelope, so no server-side token storage
// exists. Key rotation is out of scope.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewTokenService(symmetricKey []byte) (*TokenService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey: key,
	}, nil
}

// CreateAccessToken mints a bearer token whose subject is the user id
func (s *TokenService) CreateAccessToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return s.mint(userID.String(), purposeAccess, ttl), nil
}

// CreateResetToken mints a password-reset token whose subject is the email
func (s *TokenService) CreateResetToken(email string, ttl time.Duration) (string, error) {
	return s.mint(email, purposePasswordReset, ttl), nil
}

// VerifyAccessToken validates an access token and returns the user id
func (s *TokenService) VerifyAccessToken(tokenStr string) (uuid.UUID, error) {
	subject, err := s.verify(tokenStr, purposeAccess)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}

// VerifyResetToken validates a password-reset token and returns the email
// it was issued for. A reset token authorizes a password change for that
// email only.
func (s *TokenService) VerifyResetToken(tokenStr string) (string, error) {
	return s.verify(tokenStr, purposePasswordReset)
}

func (s *TokenService) mint(subject, purpose string, ttl time.Duration) string {
	now := time.Now()

	token := paseto.NewToken()
	token.SetSubject(subject)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString("purpose", purpose)

	return token.V4Encrypt(s.symmetricKey, nil)
}

// verify checks integrity, the validity window and the purpose tag.
// Any failure collapses to ErrInvalidToken: callers must not be able to
// tell a forged token from an expired or cross-purpose one.
func (s *TokenService) verify(tokenStr, expectedPurpose string) (string, error) {
	// Time checks are done below with skew tolerance, which the default
	// parser rules do not allow for.
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return "", ErrInvalidToken
	}

	now := time.Now()

	expiresAt, err := token.GetExpiration()
	if err != nil || now.After(expiresAt.Add(clockSkew)) {
		return "", ErrInvalidToken
	}

	notBefore, err := token.GetNotBefore()
	if err != nil || now.Add(clockSkew).Before(notBefore) {
		return "", ErrInvalidToken
	}

	purpose, err := token.GetString("purpose")
	if err != nil || purpose != expectedPurpose {
		return "", ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return "", ErrInvalidToken
	}

	return subject, nil
}
