package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blog-top/blog_top/internal/otp"
)

var (
	// ErrNotFound indicates no user matches the given identifier.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken indicates the email uniqueness constraint was violated.
	ErrEmailTaken = errors.New("email already in use")
	// ErrVersionConflict indicates a concurrent update won the read-modify-write race.
	ErrVersionConflict = errors.New("user version conflict")
)

// Repository persists credential store records. Update applies a full-record
// write conditional on the version read, so concurrent mutations of the same
// user resolve deterministically instead of last-writer-wins.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]User, error)
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed credential store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, password_hash, old_password_hashes,
	password_changed_at, is_verified, is_admin,
	otp_hash, otp_expires_at, otp_purpose,
	reset_otp_hash, reset_otp_expires_at,
	email_change_otp_hash, email_change_otp_expires_at, pending_email,
	subscribed, subscription_expires_at, version, created_at`

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u User) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		userID, u.Username, u.Email, u.PasswordHash, u.OldPasswordHashes,
		timePtr(u.PasswordChangedAt), u.IsVerified, u.IsAdmin,
		u.OTPHash, timePtr(u.OTPExpiresAt), string(u.OTPPurpose),
		u.ResetOTPHash, timePtr(u.ResetOTPExpiresAt),
		u.EmailChangeOTPHash, timePtr(u.EmailChangeOTPExpiresAt), u.PendingEmail,
		u.Subscribed, timePtr(u.SubscriptionExpiresAt), u.Version, u.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// FindByEmail fetches a user by normalized email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
	return scanUser(row)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// Update writes the full record conditional on the version the caller read.
// The stored version is bumped on success.
func (r *PostgresRepository) Update(ctx context.Context, u User) (User, error) {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return User{}, ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET
		username = $2, email = $3, password_hash = $4, old_password_hashes = $5,
		password_changed_at = $6, is_verified = $7, is_admin = $8,
		otp_hash = $9, otp_expires_at = $10, otp_purpose = $11,
		reset_otp_hash = $12, reset_otp_expires_at = $13,
		email_change_otp_hash = $14, email_change_otp_expires_at = $15, pending_email = $16,
		subscribed = $17, subscription_expires_at = $18, version = version + 1
		WHERE id = $1 AND version = $19`,
		userID, u.Username, u.Email, u.PasswordHash, u.OldPasswordHashes,
		timePtr(u.PasswordChangedAt), u.IsVerified, u.IsAdmin,
		u.OTPHash, timePtr(u.OTPExpiresAt), string(u.OTPPurpose),
		u.ResetOTPHash, timePtr(u.ResetOTPExpiresAt),
		u.EmailChangeOTPHash, timePtr(u.EmailChangeOTPExpiresAt), u.PendingEmail,
		u.Subscribed, timePtr(u.SubscriptionExpiresAt), u.Version)
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	if cmd.RowsAffected() == 0 {
		// Either the row is gone or a concurrent writer bumped the version.
		if _, findErr := r.FindByID(ctx, u.ID); errors.Is(findErr, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, ErrVersionConflict
	}
	u.Version++
	return u, nil
}

// Delete removes a user record permanently.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users ordered by creation time, newest first.
func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		id        uuid.UUID
		purpose   string
		changedAt *time.Time
		otpExp    *time.Time
		resetExp  *time.Time
		emailExp  *time.Time
		subExp    *time.Time
		createdAt time.Time
	)
	err := row.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.OldPasswordHashes,
		&changedAt, &u.IsVerified, &u.IsAdmin,
		&u.OTPHash, &otpExp, &purpose,
		&u.ResetOTPHash, &resetExp,
		&u.EmailChangeOTPHash, &emailExp, &u.PendingEmail,
		&u.Subscribed, &subExp, &u.Version, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.ID = id.String()
	u.OTPPurpose = otp.Purpose(purpose)
	u.PasswordChangedAt = timeVal(changedAt)
	u.OTPExpiresAt = timeVal(otpExp)
	u.ResetOTPExpiresAt = timeVal(resetExp)
	u.EmailChangeOTPExpiresAt = timeVal(emailExp)
	u.SubscriptionExpiresAt = timeVal(subExp)
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func timeVal(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
