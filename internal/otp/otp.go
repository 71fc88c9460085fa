// Package otp issues and verifies the short-lived numeric codes used for
// signup verification, signin step-up, password reset and email change.
// Only a one-way hash of a code is ever persisted.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Purpose annotates what a stored code in the shared user slot is valid for.
// A code issued for one purpose never satisfies another.
type Purpose string

const (
	PurposeVerifyEmail Purpose = "verify"
	PurposeSignin      Purpose = "signin"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// Challenge carries a freshly issued code. Code is handed to the mailer and
// then dropped; Hash and ExpiresAt are what the credential store keeps.
type Challenge struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// Issue draws a uniform 6-digit code and returns it with its hash and expiry.
func Issue(now time.Time, ttl time.Duration) (Challenge, error) {
	span := big.NewInt(codeMax - codeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return Challenge{}, fmt.Errorf("draw otp: %w", err)
	}
	code := fmt.Sprintf("%d", n.Int64()+codeMin)
	return Challenge{
		Code:      code,
		Hash:      HashCode(code),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashCode returns the hex-encoded SHA-256 digest of a plaintext code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Verify checks a supplied code against the stored hash and expiry. It fails
// closed: an absent hash, a mismatch, or a clock at or past the expiry all
// reject. The hash comparison is constant time.
func Verify(code, storedHash string, storedExpiry time.Time, now time.Time) bool {
	if storedHash == "" || storedExpiry.IsZero() {
		return false
	}
	if !now.Before(storedExpiry) {
		return false
	}
	supplied := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(storedHash)) == 1
}
