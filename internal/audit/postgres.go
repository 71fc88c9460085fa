package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder stores the activity trail in PostgreSQL.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder builds a Postgres-backed recorder.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record appends an entry. Detail is stored as JSONB.
func (r *PostgresRecorder) Record(ctx context.Context, userID, action string, detail map[string]string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO activity_log (id, user_id, action, detail, at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, action, detail, time.Now().UTC())
	return err
}

// List returns entries newest first.
func (r *PostgresRecorder) List(ctx context.Context, offset, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, action, detail, at FROM activity_log
		ORDER BY at DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			id uuid.UUID
			at time.Time
		)
		if err := rows.Scan(&id, &e.UserID, &e.Action, &e.Detail, &at); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.At = at.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
