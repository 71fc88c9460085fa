package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blog-top/blog_top/internal/apperror"
	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/user"
)

// subscriptionPeriod is how long a completed order keeps the account subscribed.
const subscriptionPeriod = 30 * 24 * time.Hour

// Service manages the anonymous-posting subscription lifecycle: order
// creation, completion against the provider, and lazy expiry.
type Service struct {
	orders   Repository
	users    user.Repository
	provider Provider
	recorder audit.Recorder
	logger   *slog.Logger

	now func() time.Time
}

// NewService wires the subscription service.
func NewService(orders Repository, users user.Repository, provider Provider,
	recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		users:    users,
		provider: provider,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Create opens a pending order and returns the provider intent the client
// uses to complete payment.
func (s *Service) Create(ctx context.Context, userID string, amount int64) (Order, Intent, error) {
	if amount <= 0 {
		return Order{}, Intent{}, apperror.Validation("Amount must be positive")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Order{}, Intent{}, apperror.NotFound("User not found")
		}
		return Order{}, Intent{}, apperror.Internal(err)
	}

	order := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Provider:  s.provider.Name(),
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}

	intent, err := s.provider.CreateOrder(ctx, order)
	if err != nil {
		return Order{}, Intent{}, apperror.Internal(err)
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return Order{}, Intent{}, apperror.Internal(err)
	}

	audit.Log(ctx, s.recorder, s.logger, userID, "subscription_order_created", map[string]string{
		"order_id": order.ID, "provider": order.Provider,
	})
	return order, intent, nil
}

// Complete verifies the payment with the provider, marks the order completed
// and activates the subscription on the owning account.
func (s *Service) Complete(ctx context.Context, orderID, reference string) (Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return Order{}, apperror.NotFound("Order not found")
		}
		return Order{}, apperror.Internal(err)
	}
	if order.Status == StatusCompleted {
		return order, nil // already settled, idempotent
	}

	ok, err := s.provider.VerifyPayment(ctx, order, reference)
	if err != nil {
		return Order{}, apperror.Internal(err)
	}
	if !ok {
		order.Status = StatusFailed
		if err := s.orders.Update(ctx, order); err != nil {
			return Order{}, apperror.Internal(err)
		}
		return Order{}, apperror.Policy("payment_unverified", "Payment could not be verified")
	}

	order.Reference = reference
	order.Status = StatusCompleted
	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, apperror.Internal(err)
	}

	u, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return Order{}, apperror.Internal(err)
	}
	u.Subscribed = true
	u.SubscriptionExpiresAt = s.now().UTC().Add(subscriptionPeriod)
	if _, err := s.users.Update(ctx, u); err != nil {
		return Order{}, apperror.Internal(err)
	}

	audit.Log(ctx, s.recorder, s.logger, order.UserID, "subscription_activated", map[string]string{
		"order_id": order.ID, "reference": reference,
	})
	return order, nil
}

// Status returns an order, restricted to its owner or an admin by the handler.
func (s *Service) Status(ctx context.Context, orderID string) (Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return Order{}, apperror.NotFound("Order not found")
		}
		return Order{}, apperror.Internal(err)
	}
	return order, nil
}

// CheckSubscription reports whether the user is currently subscribed,
// clearing an expired subscription lazily on first observation.
func (s *Service) CheckSubscription(ctx context.Context, userID string) (bool, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, apperror.NotFound("User not found")
		}
		return false, apperror.Internal(err)
	}

	if u.Subscribed && !u.SubscriptionExpiresAt.IsZero() && u.SubscriptionExpiresAt.Before(s.now()) {
		u.Subscribed = false
		u.SubscriptionExpiresAt = time.Time{}
		if _, err := s.users.Update(ctx, u); err != nil && !errors.Is(err, user.ErrVersionConflict) {
			return false, apperror.Internal(err)
		}
		// A version conflict means a concurrent writer already saw the state; the
		// read answer below is still correct.
		return false, nil
	}
	return u.Subscribed, nil
}
