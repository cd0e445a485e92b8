// Package credential decides what a plaintext account secret is and how it
// is hashed and verified. It is the only place password policy lives.
package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// hashCost is the bcrypt work factor applied to every stored secret.
	hashCost = 10

	minSecretLen = 6
	maxSecretLen = 100

	defaultSecureLen = 12

	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*"
)

// ErrMismatch is returned by Verify when the secret does not match the hash.
// Any other Verify error means the stored hash itself is unusable.
var ErrMismatch = errors.New("credential mismatch")

// StudentInitialPassword returns the student's roll number as their initial
// plaintext password. Rolls are unique and known to their owner, which
// bootstraps access without an email/SMS channel; the predictability
// trade-off is accepted deliberately and swapping the policy means
// changing this one function.
func StudentInitialPassword(rollNo string) string {
	return rollNo
}

// GenerateTeacherPassword returns a uniformly random 6-digit numeric string
// in [100000, 999999]. Used for initial teacher credentials and resets.
func GenerateTeacherPassword() (string, error) {
	n, err := randInt(900000)
	if err != nil {
		return "", errors.Wrap(err, "generating teacher password")
	}
	return fmt.Sprintf("%d", 100000+n), nil
}

// GenerateSecurePassword returns a random password of the given length
// (default 12, minimum 4) containing at least one uppercase letter, one
// lowercase letter, one digit and one symbol.
func GenerateSecurePassword(length int) (string, error) {
	if length <= 0 {
		length = defaultSecureLen
	}
	if length < 4 {
		length = 4
	}

	allChars := upperChars + lowerChars + digitChars + symbolChars
	pwd := make([]byte, 0, length)

	// one of each class, rest uniform over the combined alphabet
	for _, alphabet := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := randChar(alphabet)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}
	for len(pwd) < length {
		c, err := randChar(allChars)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}

	// Fisher-Yates so the guaranteed classes are not positional
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := randInt(int64(i + 1))
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j] = pwd[j], pwd[i]
	}
	return string(pwd), nil
}

// Hash returns the one-way adaptive hash of the secret, fit for storage.
func Hash(secret string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing secret")
	}
	return hash, nil
}

// Verify compares a plaintext secret against a stored hash.
// A wrong secret yields ErrMismatch; a malformed stored hash yields the
// underlying bcrypt error so callers never mistake corruption for a
// failed login.
func Verify(secret string, hash []byte) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return ErrMismatch
		}
		return errors.Wrap(err, "verifying secret")
	}
	return nil
}

// StrengthResult is the structured outcome of ValidateStrength.
type StrengthResult struct {
	Valid  bool
	Reason string
}

// ValidateStrength guards admin-supplied (not generated) passwords.
func ValidateStrength(secret string) StrengthResult {
	if len(secret) < minSecretLen {
		return StrengthResult{Reason: fmt.Sprintf("password must be at least %d characters long", minSecretLen)}
	}
	if len(secret) > maxSecretLen {
		return StrengthResult{Reason: fmt.Sprintf("password must be less than %d characters", maxSecretLen)}
	}
	return StrengthResult{Valid: true}
}

func randInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, errors.Wrap(err, "reading random source")
	}
	return n.Int64(), nil
}

func randChar(alphabet string) (byte, error) {
	n, err := randInt(int64(len(alphabet)))
	if err != nil {
		return 0, err
	}
	return alphabet[n], nil
}
