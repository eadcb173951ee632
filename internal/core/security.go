// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrInvalidHash = errors.New("invalid password hash")

// PasswordParams are the argon2id costs written into every encoded hash.
type PasswordParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

var DefaultPasswordParams = PasswordParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
}

const (
	saltLength         = 16
	refreshTokenLength = 32
)

type passwordHash struct {
	params PasswordParams
	salt   []byte
	key    []byte
}

func HashPassword(password string) (string, error) {
	return hashPasswordWith(password, DefaultPasswordParams)
}

func hashPasswordWith(password string, p PasswordParams) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func parsePasswordHash(encoded string) (*passwordHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}

	var h passwordHash
	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&h.params.Memory,
		&h.params.Time,
		&h.params.Threads,
	); err != nil {
		return nil, fmt.Errorf("%w: params: %w", ErrInvalidHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}

	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	h.params.KeyLen = uint32(len(h.key))
	return &h, nil
}

func (h *passwordHash) matches(password string) bool {
	other := argon2.IDKey(
		[]byte(password),
		h.salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		h.params.KeyLen,
	)
	return subtle.ConstantTimeCompare(h.key, other) == 1
}

func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePasswordHash(encoded)
	if err != nil {
		return false, err
	}
	return h.matches(password), nil
}

// VerifyPasswordWithRehash returns a replacement hash when the stored one
// was produced with parameters other than DefaultPasswordParams. The
// replacement is empty when no upgrade is due or hashing failed.
func VerifyPasswordWithRehash(password, encoded string) (bool, string, error) {
	h, err := parsePasswordHash(encoded)
	if err != nil {
		return false, "", err
	}
	if !h.matches(password) {
		return false, "", nil
	}
	if h.params == DefaultPasswordParams {
		return true, "", nil
	}

	upgraded, err := HashPassword(password)
	if err != nil {
		return true, "", nil //nolint:nilerr // login succeeded, upgrade retried next time
	}
	return true, upgraded, nil
}

var dummyPasswordHash = sync.OnceValue(func() string {
	//nolint:errcheck // rand.Read does not fail on supported platforms
	h, _ := HashPassword("timing-equalizer")
	return h
})

// VerifyPasswordTimingSafe spends one argon2 derivation even when the account
// has no stored hash, so unknown emails cost the same as wrong passwords.
func VerifyPasswordTimingSafe(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		//nolint:errcheck // result discarded on purpose
		_, _ = VerifyPassword(password, dummyPasswordHash())
		return false, "", nil
	}
	return VerifyPasswordWithRehash(password, *encoded)
}

func GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// HashToken is the at-rest form of refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
