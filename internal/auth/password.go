package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. 12 takes ~250ms per hash on modern
// hardware: slow enough to hurt brute force, fast enough for a login request.
const defaultCost = 12

// MaxPasswordBytes is bcrypt's input limit; longer inputs are silently
// truncated by the algorithm, so Hash rejects them instead.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies user passwords with bcrypt.
type PasswordService struct {
	cost int
	// dummy is compared against when the account does not exist, so a
	// failed login costs the same whether or not the username is known.
	dummy []byte
}

func NewPasswordService() *PasswordService {
	return newPasswordServiceWithCost(defaultCost)
}

// NewPasswordServiceForTest returns a service with a low bcrypt cost.
// Use bcrypt.MinCost (4) in tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	dummy, err := bcrypt.GenerateFromPassword([]byte("needley-dummy-password"), cost)
	if err != nil {
		// Only possible with a cost outside bcrypt's range.
		panic(fmt.Sprintf("auth: invalid bcrypt cost %d: %v", cost, err))
	}
	return &PasswordService{cost: cost, dummy: dummy}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not. An empty hash (account without a password) never matches,
// and neither does a plaintext longer than MaxPasswordBytes, which bcrypt
// would otherwise compare on its first 72 bytes only.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" || len(plaintext) > MaxPasswordBytes {
		p.VerifyDummy(plaintext)
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns the same CPU as a real comparison. Call it when the
// username does not exist.
func (p *PasswordService) VerifyDummy(plaintext string) {
	if len(plaintext) > MaxPasswordBytes {
		plaintext = plaintext[:MaxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
}
