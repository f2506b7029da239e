package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/redmonkez12/go-login-service/internal/config"
)

const (
	saltLen = 16
	keyLen  = 32
)

// PasswordHasher hashes and verifies passwords with Argon2id. The cost
// parameters come from configuration; stored hashes embed the parameters
// they were produced with, so verification keeps working after a cost bump.
type PasswordHasher struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8

	// dummyHash is verified against when login hits an unknown email, so
	// the unknown-email and wrong-password paths take comparable time.
	dummyHash string
}

func NewPasswordHasher(cfg config.HasherConfig) (*PasswordHasher, error) {
	h := &PasswordHasher{
		memoryKiB:   cfg.MemoryKiB,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
	}

	dummy, err := h.Hash("decoy-password-for-timing-uniformity")
	if err != nil {
		return nil, fmt.Errorf("failed to precompute dummy hash: %w", err)
	}
	h.dummyHash = dummy

	return h, nil
}

// Hash creates an Argon2id hash of the password
func (h *PasswordHasher) Hash(password string) (string, error) {
	// Generate random salt
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.iterations,
		h.memoryKiB,
		h.parallelism,
		keyLen,
	)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memoryKiB,
		h.iterations,
		h.parallelism,
		encodedSalt,
		encodedHash,
	), nil
}

// Verify checks if a password matches the stored hash. The parameters are
// parsed from the hash itself, not taken from the current configuration.
func (h *PasswordHasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Hash the input password with the same parameters
	inputHash := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memory,
		parallelism,
		uint32(len(decodedHash)),
	)

	// Compare hashes using constant-time comparison
	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}

// DummyVerify burns one verification's worth of work without revealing
// anything. Called on the unknown-email login path.
func (h *PasswordHasher) DummyVerify(password string) {
	h.Verify(password, h.dummyHash)
}
