package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past this many bytes.
const maxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher hashes plain text passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash. Every call draws a fresh salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}

	return string(hash), nil
}

// Verify compares a bcrypt hash with a plaintext password. Input longer than
// bcrypt can hash never matches, otherwise any suffix of a 72-byte password
// would verify.
func (h *Hasher) Verify(plain, hash string) bool {
	if len(plain) > maxPasswordBytes {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
