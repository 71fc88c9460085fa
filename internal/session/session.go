// Package session mints and validates the signed tokens that prove
// authenticated identity. Tokens are HS256 JWTs with a fixed validity window
// and a unique identifier so individual tokens can be revoked.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie the API sets and reads.
const CookieName = "access_token"

var (
	// ErrInvalidToken indicates a malformed, tampered or wrongly signed token.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken indicates a token past its validity window.
	ErrExpiredToken = errors.New("session token expired")
)

// Claims embeds the registered JWT claims and the authorization flag.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"adm"`
}

// Issuer signs and parses session tokens with a server-held secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds a session issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL exposes the configured validity window.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token embedding the user identifier and admin flag, valid
// for the configured window from now.
func (i *Issuer) Issue(userID string, isAdmin bool, now time.Time) (string, Claims, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		IsAdmin: isAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Parse validates the signature and expiry and returns the claims.
func (i *Issuer) Parse(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
