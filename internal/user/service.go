package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blog-top/blog_top/internal/apperror"
	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/config"
	"github.com/blog-top/blog_top/internal/mailer"
	"github.com/blog-top/blog_top/internal/otp"
	"github.com/blog-top/blog_top/internal/password"
)

// Service covers the account-management surface that shares the credential
// store with the auth flows: profile updates, email change with OTP
// confirmation, deletion and the admin listing.
type Service struct {
	repo     Repository
	mail     mailer.Mailer
	recorder audit.Recorder
	logger   *slog.Logger

	otpTTL       time.Duration
	historyDepth int

	now func() time.Time
}

// NewService wires the account service.
func NewService(cfg config.Config, repo Repository, mail mailer.Mailer,
	recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		mail:         mail,
		recorder:     recorder,
		logger:       logger,
		otpTTL:       cfg.OTPTTL,
		historyDepth: cfg.HistoryDepth,
		now:          time.Now,
	}
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperror.NotFound("User not found")
		}
		return User{}, apperror.Internal(err)
	}
	return u, nil
}

// UpdateInput carries the mutable profile fields. Email is deliberately
// absent; address changes go through the OTP-confirmed flow.
type UpdateInput struct {
	Username        string
	Password        string
	CurrentPassword string
}

// Update applies a username and/or password change for the target user.
// Password changes require the current password and honor strength and
// history-reuse policy.
func (s *Service) Update(ctx context.Context, targetID string, in UpdateInput) (User, error) {
	u, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperror.NotFound("User not found")
		}
		return User{}, apperror.Internal(err)
	}

	if in.Password != "" {
		if in.CurrentPassword == "" {
			return User{}, apperror.Validation("Current password is required to change password")
		}
		if !password.Matches(in.CurrentPassword, u.PasswordHash) {
			return User{}, apperror.Authorization("Incorrect current password")
		}
		if !password.IsStrong(in.Password) {
			return User{}, apperror.Policy("weak_password",
				"Password must be at least 8 characters and include uppercase, lowercase, number, and special character")
		}
		if password.IsReused(in.Password, u.PasswordHash, u.OldPasswordHashes) {
			return User{}, apperror.Policy("password_reuse", "You cannot reuse a recent password.")
		}

		hash, err := password.Hash(in.Password)
		if err != nil {
			return User{}, apperror.Internal(err)
		}
		u.OldPasswordHashes = password.PushHistory(u.OldPasswordHashes, u.PasswordHash, s.historyDepth)
		u.PasswordHash = hash
		u.PasswordChangedAt = s.now().UTC()
	}

	if in.Username != "" {
		username := sanitizeUsername(in.Username)
		if len(username) < 7 || len(username) > 20 {
			return User{}, apperror.Validation("Username must be between 7 and 20 characters")
		}
		u.Username = username
	}

	u, err = s.repo.Update(ctx, u)
	if err != nil {
		return User{}, mapRepoErr(err)
	}

	if in.Password != "" {
		audit.Log(ctx, s.recorder, s.logger, u.ID, "password_changed", map[string]string{"email": u.Email})
		body := fmt.Sprintf(`<h2>Password Change Confirmation</h2>
			<p>Hello %s,</p>
			<p>Your password was successfully changed on %s.</p>
			<p>If you did not perform this action, please reset your password immediately.</p>`,
			u.Username, s.now().UTC().Format(time.RFC1123))
		if err := s.mail.Send(ctx, u.Email, "Your password has been changed", body); err != nil {
			// The change is committed; delivery failure only gets logged.
			s.logger.Warn("password change confirmation email failed", "user_id", u.ID, "error", err)
		}
	}

	return u, nil
}

// RequestEmailChange stores a pending address and emails a confirmation code
// to the NEW address, proving the requester controls it.
func (s *Service) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = NormalizeEmail(newEmail)
	if newEmail == "" {
		return apperror.Validation("New email is required")
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Internal(err)
	}
	// Same-address first: the uniqueness probe below would find the
	// requester's own record and misreport it as taken.
	if newEmail == u.Email {
		return apperror.Validation("New email matches the current address")
	}

	if _, err := s.repo.FindByEmail(ctx, newEmail); err == nil {
		return apperror.Conflict("Email already in use")
	} else if !errors.Is(err, ErrNotFound) {
		return apperror.Internal(err)
	}

	challenge, err := otp.Issue(s.now().UTC(), s.otpTTL)
	if err != nil {
		return apperror.Internal(err)
	}
	u.EmailChangeOTPHash = challenge.Hash
	u.EmailChangeOTPExpiresAt = challenge.ExpiresAt
	u.PendingEmail = newEmail
	if _, err := s.repo.Update(ctx, u); err != nil {
		return mapRepoErr(err)
	}

	body := fmt.Sprintf(`<p>We received a request to change the email on your account to <strong>%s</strong>.</p>
		<p>Your confirmation code is <b>%s</b>. It expires in %d minutes.</p>`,
		newEmail, challenge.Code, int(s.otpTTL.Minutes()))
	if err := s.mail.Send(ctx, newEmail, "Confirm your new email", body); err != nil {
		return apperror.Delivery(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "email_change_requested", map[string]string{"new_email": newEmail})
	return nil
}

// ConfirmEmailChange consumes the confirmation code and swaps the address.
func (s *Service) ConfirmEmailChange(ctx context.Context, userID, code string) (User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return User{}, apperror.Validation("OTP is required")
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperror.NotFound("User not found")
		}
		return User{}, apperror.Internal(err)
	}
	if u.PendingEmail == "" {
		return User{}, apperror.Validation("No email change pending")
	}

	if !otp.Verify(code, u.EmailChangeOTPHash, u.EmailChangeOTPExpiresAt, s.now()) {
		return User{}, apperror.Authentication("Invalid or expired OTP")
	}

	oldEmail := u.Email
	u.Email = u.PendingEmail
	u.ClearEmailChange()
	u, err = s.repo.Update(ctx, u)
	if err != nil {
		return User{}, mapRepoErr(err)
	}

	audit.Log(ctx, s.recorder, s.logger, u.ID, "email_changed", map[string]string{
		"old_email": oldEmail, "new_email": u.Email,
	})

	body := fmt.Sprintf(`<p>The email on your account was changed to <strong>%s</strong>.</p>
		<p>If you did not perform this action, contact support immediately.</p>`, u.Email)
	if err := s.mail.Send(ctx, oldEmail, "Your account email was changed", body); err != nil {
		s.logger.Warn("email change notification failed", "user_id", u.ID, "error", err)
	}

	return u, nil
}

// Delete removes an account immediately and unconditionally.
func (s *Service) Delete(ctx context.Context, targetID string) error {
	if err := s.repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Internal(err)
	}
	audit.Log(ctx, s.recorder, s.logger, targetID, "user_deleted", nil)
	return nil
}

// List pages through users for the admin view.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Sanitized())
	}
	return profiles, nil
}

func sanitizeUsername(username string) string {
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

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, ErrVersionConflict):
		return apperror.Conflict("Account was modified concurrently, please retry")
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("User not found")
	case errors.Is(err, ErrEmailTaken):
		return apperror.Conflict("Email already in use")
	default:
		return apperror.Internal(err)
	}
}
