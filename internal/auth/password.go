package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (so two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version

// DefaultCost is the bcrypt work factor used when none is configured.
// Cost 12 takes roughly 250ms on a modern server.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected:
// tests use the minimum cost (4) to stay fast.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Values outside bcrypt's [MinCost, MaxCost] range fall back to DefaultCost.
//
// Do NOT use cost 4 in production; it is only fast enough for tests.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Store the result directly in the database. It includes the salt and
// cost, so bcrypt.CompareHashAndPassword knows how to decode it.
//
// Returns an error if the plaintext is longer than 72 bytes (a bcrypt limit).
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		// bcrypt silently truncates; reject explicitly instead.
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil on a match and ErrPasswordMismatch on a wrong password. Any
// other error means the stored hash itself is unusable.
//
// bcrypt.CompareHashAndPassword compares in constant time, so response
// timing does not leak how much of the password was right.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
