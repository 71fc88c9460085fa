// Package password implements the credential policy: strength validation,
// history-based reuse rejection, expiry computation and hash management.
package password

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Symbols is the punctuation set accepted by the strength check.
const Symbols = "@$!%*?&#^()_-+="

const bcryptCost = 10

// Hash derives a bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Matches reports whether plaintext corresponds to the stored bcrypt hash.
func Matches(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IsStrong requires length >= 8 with at least one lowercase letter, one
// uppercase letter, one digit and one symbol from Symbols. Callers report
// any failure as a single generic policy violation.
func IsStrong(candidate string) bool {
	if len(candidate) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// IsReused reports whether candidate matches the current hash or any entry
// of the bounded history.
func IsReused(candidate, currentHash string, historyHashes []string) bool {
	if currentHash != "" && Matches(candidate, currentHash) {
		return true
	}
	for _, h := range historyHashes {
		if Matches(candidate, h) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the password is older than expiryDays. A zero
// changedAt means the password never expires.
func IsExpired(changedAt time.Time, now time.Time, expiryDays int) bool {
	if changedAt.IsZero() {
		return false
	}
	return now.Sub(changedAt) > time.Duration(expiryDays)*24*time.Hour
}

// PushHistory prepends currentHash to history and trims to depth entries,
// most recent first.
func PushHistory(history []string, currentHash string, depth int) []string {
	updated := append([]string{currentHash}, history...)
	if len(updated) > depth {
		updated = updated[:depth]
	}
	return updated
}
