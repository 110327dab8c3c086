package sendauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/autou/mailtriage/pkg/errors"
)

const (
	otpDigits   = 6
	otpSpace    = 1_000_000
	saltBytes   = 8
	hashSepByte = "$"
)

// GenerateCode returns a uniformly random 6-digit decimal code. The code is a
// low-entropy bearer secret, so it is drawn from crypto/rand rather than a
// general-purpose PRNG.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// HashCode derives a fresh random salt and returns the storable "salt$hash"
// representation of the code. The raw code is never persisted.
func HashCode(code string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("otp: generate salt: %w", err)
	}
	hexSalt := hex.EncodeToString(salt)
	return hexSalt + hashSepByte + digest(hexSalt, code), nil
}

// VerifyCode recomputes the digest of salt||code and compares it to the
// stored hash in constant time with respect to the secret.
func VerifyCode(code, salt, hash string) bool {
	candidate, err := hex.DecodeString(digest(salt, code))
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	if len(candidate) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, stored) == 1
}

// SplitStoredHash separates a "salt$hash" value into its parts.
func SplitStoredHash(stored string) (salt, hash string, err error) {
	salt, hash, ok := strings.Cut(stored, hashSepByte)
	if !ok || salt == "" || hash == "" {
		return "", "", errors.ErrMalformedToken
	}
	return salt, hash, nil
}

func digest(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + code))
	return hex.EncodeToString(sum[:])
}
