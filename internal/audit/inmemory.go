package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRecorder keeps the activity trail in process memory. Used in dev
// mode and tests.
type InMemoryRecorder struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory builds an empty in-memory recorder.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Record appends an entry.
func (r *InMemoryRecorder) Record(_ context.Context, userID, action string, detail map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		ID:     uuid.NewString(),
		UserID: userID,
		Action: action,
		Detail: detail,
		At:     time.Now().UTC(),
	})
	return nil
}

// List returns entries newest first.
func (r *InMemoryRecorder) List(_ context.Context, offset, limit int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.entries)
	if offset >= n {
		return nil, nil
	}
	out := make([]Entry, 0, n-offset)
	for i := n - 1 - offset; i >= 0; i-- {
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
