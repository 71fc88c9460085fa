package user

import (
	"time"

	"github.com/blog-top/blog_top/internal/otp"
)

// User is the credential store record. Transient OTP material lives in three
// slots: a general slot shared by signup verification and signin step-up
// (annotated with its purpose), a dedicated reset slot, and a dedicated
// email-change slot. Plaintext codes and passwords are never persisted.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	OldPasswordHashes []string
	PasswordChangedAt time.Time
	IsVerified        bool
	IsAdmin           bool

	OTPHash      string
	OTPExpiresAt time.Time
	OTPPurpose   otp.Purpose

	ResetOTPHash      string
	ResetOTPExpiresAt time.Time

	EmailChangeOTPHash      string
	EmailChangeOTPExpiresAt time.Time
	PendingEmail            string

	Subscribed            bool
	SubscriptionExpiresAt time.Time

	// Version guards read-modify-write cycles. Update refuses to apply a
	// mutation built from a stale read.
	Version   int
	CreatedAt time.Time
}

// SetGeneralOTP overwrites the shared slot, invalidating any outstanding code.
func (u *User) SetGeneralOTP(hash string, expiresAt time.Time, purpose otp.Purpose) {
	u.OTPHash = hash
	u.OTPExpiresAt = expiresAt
	u.OTPPurpose = purpose
}

// ClearGeneralOTP empties the shared slot. Consumed and expired codes must be
// cleared, not merely ignored.
func (u *User) ClearGeneralOTP() {
	u.OTPHash = ""
	u.OTPExpiresAt = time.Time{}
	u.OTPPurpose = ""
}

// ClearResetOTP empties the password-reset slot.
func (u *User) ClearResetOTP() {
	u.ResetOTPHash = ""
	u.ResetOTPExpiresAt = time.Time{}
}

// ClearEmailChange empties the email-change slot including the pending address.
func (u *User) ClearEmailChange() {
	u.EmailChangeOTPHash = ""
	u.EmailChangeOTPExpiresAt = time.Time{}
	u.PendingEmail = ""
}

// Profile is the client-safe projection of a user. No credential or OTP
// material ever leaves through it.
type Profile struct {
	ID                    string     `json:"id"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	IsVerified            bool       `json:"is_verified"`
	IsAdmin               bool       `json:"is_admin"`
	Subscribed            bool       `json:"subscribed"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Sanitized returns the client-safe projection.
func (u User) Sanitized() Profile {
	p := Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
		Subscribed: u.Subscribed,
		CreatedAt:  u.CreatedAt,
	}
	if !u.SubscriptionExpiresAt.IsZero() {
		t := u.SubscriptionExpiresAt
		p.SubscriptionExpiresAt = &t
	}
	return p
}
