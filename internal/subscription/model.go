package subscription

import "time"

// Order statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Order represents a payment order for the anonymous-posting subscription.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Provider  string    `json:"provider"`
	Reference string    `json:"reference,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Intent carries the provider-specific fields the client needs to complete
// the payment (redirect parameters, signature).
type Intent struct {
	Provider string            `json:"provider"`
	Params   map[string]string `json:"params"`
}
