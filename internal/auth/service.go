// Package auth sequences the signup, verification, signin, step-up and
// password lifecycle flows over the credential store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blog-top/blog_top/internal/apperror"
	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/config"
	"github.com/blog-top/blog_top/internal/mailer"
	"github.com/blog-top/blog_top/internal/otp"
	"github.com/blog-top/blog_top/internal/password"
	"github.com/blog-top/blog_top/internal/session"
	"github.com/blog-top/blog_top/internal/user"
)

// Service orchestrates the authentication lifecycle.
type Service struct {
	repo     user.Repository
	mail     mailer.Mailer
	sessions *session.Issuer
	denylist *session.Denylist
	recorder audit.Recorder
	logger   *slog.Logger

	otpTTL       time.Duration
	expiryDays   int
	historyDepth int

	now func() time.Time
}

// NewService wires the orchestrator with its collaborators.
func NewService(cfg config.Config, repo user.Repository, mail mailer.Mailer,
	sessions *session.Issuer, denylist *session.Denylist,
	recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		mail:         mail,
		sessions:     sessions,
		denylist:     denylist,
		recorder:     recorder,
		logger:       logger,
		otpTTL:       cfg.OTPTTL,
		expiryDays:   cfg.PasswordExpiryDays,
		historyDepth: cfg.HistoryDepth,
		now:          time.Now,
	}
}

// SignupInput carries the fields required to register an account.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates an unverified user and emails a verification code. All
// validation runs before any database mutation.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	username := SanitizeUsername(in.Username)
	email := user.NormalizeEmail(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return apperror.Validation("Username, email and password are required")
	}
	if !validEmail(email) {
		return apperror.Validation("Invalid email format")
	}
	if !password.IsStrong(in.Password) {
		return apperror.Policy("weak_password", "Password must include upper, lower, number & symbol")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return apperror.Conflict("Email already in use")
	} else if !errors.Is(err, user.ErrNotFound) {
		return apperror.Internal(err)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return apperror.Internal(err)
	}

	now := s.now().UTC()
	challenge, err := otp.Issue(now, s.otpTTL)
	if err != nil {
		return apperror.Internal(err)
	}

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
	}
	u.SetGeneralOTP(challenge.Hash, challenge.ExpiresAt, otp.PurposeVerifyEmail)

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return apperror.Conflict("Email already in use")
		}
		return apperror.Internal(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "user_registered", map[string]string{"email": email})

	body := fmt.Sprintf("<p>Your OTP for verification is <b>%s</b>. It expires in %d minutes.</p>",
		challenge.Code, int(s.otpTTL.Minutes()))
	if err := s.mail.Send(ctx, email, "Verify your email", body); err != nil {
		return apperror.Delivery(err)
	}
	return nil
}

// VerifyEmail consumes the signup code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = user.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperror.Validation("Email and OTP required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperror.Authentication("Invalid or expired OTP")
		}
		return apperror.Internal(err)
	}

	if u.OTPPurpose != otp.PurposeVerifyEmail || !otp.Verify(code, u.OTPHash, u.OTPExpiresAt, s.now()) {
		return apperror.Authentication("Invalid or expired OTP")
	}

	u.IsVerified = true
	u.ClearGeneralOTP()
	if _, err := s.repo.Update(ctx, u); err != nil {
		return mapUpdateErr(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "email_verified", map[string]string{"email": email})
	return nil
}

// SigninResult reports the signin outcome: either an OTP was emailed for
// step-up, or the password has expired and must be changed first.
type SigninResult struct {
	UserID          string
	PasswordExpired bool
}

// Signin checks credentials and, when the password is current, issues a
// fresh step-up code. It never mints a session directly.
func (s *Service) Signin(ctx context.Context, email, plaintext string) (SigninResult, error) {
	email = user.NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return SigninResult{}, apperror.Validation("All fields are required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return SigninResult{}, apperror.NotFound("User not found")
		}
		return SigninResult{}, apperror.Internal(err)
	}

	if !u.IsVerified {
		return SigninResult{}, apperror.Authorization("Verify your email first")
	}

	if !password.Matches(plaintext, u.PasswordHash) {
		audit.Log(ctx, s.recorder, s.logger, u.ID, "failed_login_attempt", map[string]string{"email": email})
		return SigninResult{}, apperror.Authentication("Invalid credentials")
	}

	now := s.now().UTC()
	if password.IsExpired(u.PasswordChangedAt, now, s.expiryDays) {
		// No OTP, no session. The client is pointed at the expired-password flow.
		return SigninResult{UserID: u.ID, PasswordExpired: true}, nil
	}

	// Always a fresh code: overwriting the slot invalidates any outstanding one.
	challenge, err := otp.Issue(now, s.otpTTL)
	if err != nil {
		return SigninResult{}, apperror.Internal(err)
	}
	u.SetGeneralOTP(challenge.Hash, challenge.ExpiresAt, otp.PurposeSignin)
	if _, err := s.repo.Update(ctx, u); err != nil {
		return SigninResult{}, mapUpdateErr(err)
	}

	body := fmt.Sprintf("<p>Your OTP is <b>%s</b>. It expires in %d minutes.</p>",
		challenge.Code, int(s.otpTTL.Minutes()))
	if err := s.mail.Send(ctx, email, "Your Sign-In OTP", body); err != nil {
		return SigninResult{}, apperror.Delivery(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "signin_otp_sent", map[string]string{"email": email})
	return SigninResult{UserID: u.ID}, nil
}

// VerifySigninOTP consumes the step-up code and mints a session token.
func (s *Service) VerifySigninOTP(ctx context.Context, userID, code string) (user.User, string, error) {
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return user.User{}, "", apperror.Validation("User ID and OTP are required")
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, "", apperror.NotFound("User not found")
		}
		return user.User{}, "", apperror.Internal(err)
	}

	if u.OTPPurpose != otp.PurposeSignin || !otp.Verify(code, u.OTPHash, u.OTPExpiresAt, s.now()) {
		return user.User{}, "", apperror.Authentication("Invalid or expired OTP")
	}

	// Clear before committing the session so the code can never replay.
	u.ClearGeneralOTP()
	u, err = s.repo.Update(ctx, u)
	if err != nil {
		return user.User{}, "", mapUpdateErr(err)
	}

	token, _, err := s.sessions.Issue(u.ID, u.IsAdmin, s.now())
	if err != nil {
		return user.User{}, "", apperror.Internal(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "user_logged_in", map[string]string{"email": u.Email})
	return u, token, nil
}

// RequestPasswordReset issues a reset code when the account exists. The
// caller returns an identical response either way to prevent enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	if email == "" || !validEmail(email) {
		return apperror.Validation("Valid email required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil // indistinguishable from success
		}
		return apperror.Internal(err)
	}

	challenge, err := otp.Issue(s.now().UTC(), s.otpTTL)
	if err != nil {
		return apperror.Internal(err)
	}
	u.ResetOTPHash = challenge.Hash
	u.ResetOTPExpiresAt = challenge.ExpiresAt
	if _, err := s.repo.Update(ctx, u); err != nil {
		return mapUpdateErr(err)
	}

	body := fmt.Sprintf("<p>Your OTP is <b>%s</b></p>", challenge.Code)
	if err := s.mail.Send(ctx, email, "Password Reset OTP", body); err != nil {
		return apperror.Delivery(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "password_reset_requested", map[string]string{"email": email})
	return nil
}

// ResetPassword consumes the reset code and installs a new password subject
// to strength and reuse policy.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = user.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return apperror.Validation("All fields are required")
	}
	if !password.IsStrong(newPassword) {
		return apperror.Policy("weak_password", "Password must include upper, lower, number & symbol")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperror.Authentication("Invalid or expired OTP")
		}
		return apperror.Internal(err)
	}

	if !otp.Verify(code, u.ResetOTPHash, u.ResetOTPExpiresAt, s.now()) {
		return apperror.Authentication("Invalid or expired OTP")
	}

	if password.IsReused(newPassword, u.PasswordHash, u.OldPasswordHashes) {
		return apperror.Policy("password_reuse", "You cannot reuse a recent password.")
	}

	if err := s.installPassword(&u, newPassword); err != nil {
		return err
	}
	u.ClearResetOTP()
	if _, err := s.repo.Update(ctx, u); err != nil {
		return mapUpdateErr(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "password_reset", map[string]string{"email": email})
	return nil
}

// ChangeExpiredPassword lets a locked-out user rotate an expired password.
// No session is issued; the user signs in again afterwards.
func (s *Service) ChangeExpiredPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	email = user.NormalizeEmail(email)
	if email == "" || oldPassword == "" || newPassword == "" {
		return apperror.Validation("All fields are required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Internal(err)
	}

	if !password.Matches(oldPassword, u.PasswordHash) {
		return apperror.Authentication("Old password is incorrect").WithCode(401)
	}
	if !password.IsStrong(newPassword) {
		return apperror.Policy("weak_password", "Password must include upper, lower, number & symbol")
	}
	if password.IsReused(newPassword, u.PasswordHash, u.OldPasswordHashes) {
		return apperror.Policy("password_reuse", "You cannot reuse a recent password.")
	}

	if err := s.installPassword(&u, newPassword); err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, u); err != nil {
		return mapUpdateErr(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "password_changed_after_expiry", map[string]string{"email": email})
	return nil
}

// GoogleSignIn upserts a pre-verified account from a federated identity and
// issues a session directly, trusting the upstream provider for step-up.
func (s *Service) GoogleSignIn(ctx context.Context, email, name string) (user.User, string, error) {
	email = user.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return user.User{}, "", apperror.Validation("Incomplete Google account data")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		u, err = s.createFederatedUser(ctx, email, name)
	}
	if err != nil {
		return user.User{}, "", apperror.From(err)
	}

	token, _, err := s.sessions.Issue(u.ID, u.IsAdmin, s.now())
	if err != nil {
		return user.User{}, "", apperror.Internal(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "google_oauth_signin", map[string]string{"email": email})
	return u, token, nil
}

// Logout revokes the presented token for its remaining validity. An absent
// or unparseable token is not an error; the cookie is cleared regardless.
func (s *Service) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}
	claims, err := s.sessions.Parse(rawToken)
	if err != nil {
		return
	}
	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.denylist.Revoke(ctx, claims.ID, remaining); err != nil && s.logger != nil {
		s.logger.Warn("session revocation failed", "error", err)
	}
	audit.Log(ctx, s.recorder, s.logger, claims.Subject, "user_logged_out", nil)
}

func (s *Service) createFederatedUser(ctx context.Context, email, name string) (user.User, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return user.User{}, apperror.Internal(err)
	}
	hash, err := password.Hash(hex.EncodeToString(buf))
	if err != nil {
		return user.User{}, apperror.Internal(err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return user.User{}, apperror.Internal(err)
	}
	base := strings.ReplaceAll(strings.ToLower(name), " ", "")

	u := user.User{
		ID:           uuid.NewString(),
		Username:     fmt.Sprintf("%s_%d", SanitizeUsername(base), suffix.Int64()),
		Email:        email,
		PasswordHash: hash,
		IsVerified:   true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			// Concurrent first login; reread the winner.
			return s.repo.FindByEmail(ctx, email)
		}
		return user.User{}, apperror.Internal(err)
	}
	return u, nil
}

func (s *Service) installPassword(u *user.User, newPassword string) error {
	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	u.OldPasswordHashes = password.PushHistory(u.OldPasswordHashes, u.PasswordHash, s.historyDepth)
	u.PasswordHash = hash
	u.PasswordChangedAt = s.now().UTC()
	return nil
}

// SanitizeUsername strips everything but letters, digits, '.', '_' and '-'.
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	var b strings.Builder
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func mapUpdateErr(err error) error {
	switch {
	case errors.Is(err, user.ErrVersionConflict):
		return apperror.Conflict("Account was modified concurrently, please retry")
	case errors.Is(err, user.ErrNotFound):
		return apperror.NotFound("User not found")
	case errors.Is(err, user.ErrEmailTaken):
		return apperror.Conflict("Email already in use")
	default:
		return apperror.Internal(err)
	}
}
