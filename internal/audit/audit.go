// Package audit keeps an append-only trail of account activity: signups,
// logins, password changes, deletions. Recording is best effort; a failed
// write must never fail the request that triggered it.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/blog-top/blog_top/internal/middleware"
)

// Entry is a single recorded activity.
type Entry struct {
	ID     string            `json:"id"`
	UserID string            `json:"user_id"`
	Action string            `json:"action"`
	Detail map[string]string `json:"detail,omitempty"`
	At     time.Time         `json:"at"`
}

// Recorder appends and lists activity entries.
type Recorder interface {
	Record(ctx context.Context, userID, action string, detail map[string]string) error
	List(ctx context.Context, offset, limit int) ([]Entry, error)
}

// Log records an activity and downgrades failures to a warning. When the
// context carries a request identifier it is stamped onto the entry detail,
// tying the trail back to the request log.
func Log(ctx context.Context, rec Recorder, logger *slog.Logger, userID, action string, detail map[string]string) {
	if rec == nil {
		return
	}
	if reqID := middleware.RequestIDFromContext(ctx); reqID != "" {
		enriched := make(map[string]string, len(detail)+1)
		for k, v := range detail {
			enriched[k] = v
		}
		enriched["request_id"] = reqID
		detail = enriched
	}
	if err := rec.Record(ctx, userID, action, detail); err != nil && logger != nil {
		logger.Warn("audit record failed", "action", action, "user_id", userID, "error", err)
	}
}
