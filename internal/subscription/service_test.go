package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/logging"
	"github.com/blog-top/blog_top/internal/user"
)

func newTestService(t *testing.T) (*Service, user.Repository, *time.Time) {
	t.Helper()
	users := user.NewMemoryRepository()
	svc := NewService(NewMemoryRepository(), users, StaticProvider{},
		audit.NewInMemory(), logging.Discard())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, users, clock
}

func seedAccount(t *testing.T, users user.Repository) user.User {
	t.Helper()
	u := user.User{
		ID:         uuid.NewString(),
		Username:   "subscriber",
		Email:      "sub@example.com",
		IsVerified: true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateAndCompleteActivatesSubscription(t *testing.T) {
	svc, users, clock := newTestService(t)
	ctx := context.Background()
	u := seedAccount(t, users)

	order, intent, err := svc.Create(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != StatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if intent.Params["transaction_uuid"] != order.ID {
		t.Fatal("intent must reference the order")
	}

	completed, err := svc.Complete(ctx, order.ID, "ref-123")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted || completed.Reference != "ref-123" {
		t.Fatalf("unexpected order state: %+v", completed)
	}

	stored, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Subscribed {
		t.Fatal("account must be subscribed after completion")
	}
	want := clock.Add(30 * 24 * time.Hour)
	if !stored.SubscriptionExpiresAt.Equal(want) {
		t.Fatalf("expiry %v, want %v", stored.SubscriptionExpiresAt, want)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := seedAccount(t, users)

	order, _, err := svc.Create(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.Complete(ctx, order.ID, "ref-123"); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	again, err := svc.Complete(ctx, order.ID, "ref-456")
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if again.Reference != "ref-123" {
		t.Fatal("a settled order must not be re-verified")
	}
}

func TestCompleteUnverifiedPaymentFailsOrder(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := seedAccount(t, users)

	order, _, err := svc.Create(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.Complete(ctx, order.ID, ""); err == nil {
		t.Fatal("empty reference must fail verification")
	}

	failed, err := svc.Status(ctx, order.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if failed.Status != StatusFailed {
		t.Fatalf("expected failed order, got %s", failed.Status)
	}
	stored, _ := users.FindByID(ctx, u.ID)
	if stored.Subscribed {
		t.Fatal("a failed payment must not subscribe the account")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := seedAccount(t, users)

	if _, _, err := svc.Create(ctx, u.ID, 0); err == nil {
		t.Fatal("zero amount must be rejected")
	}
	if _, _, err := svc.Create(ctx, "nope", 100); err == nil {
		t.Fatal("unknown user must be rejected")
	}
}

func TestCheckSubscriptionLazyExpiry(t *testing.T) {
	svc, users, clock := newTestService(t)
	ctx := context.Background()
	u := seedAccount(t, users)

	order, _, err := svc.Create(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.Complete(ctx, order.ID, "ref-123"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	active, err := svc.CheckSubscription(ctx, u.ID)
	if err != nil || !active {
		t.Fatalf("expected active subscription, got %v %v", active, err)
	}

	*clock = clock.Add(31 * 24 * time.Hour)
	active, err = svc.CheckSubscription(ctx, u.ID)
	if err != nil || active {
		t.Fatalf("expected lapsed subscription, got %v %v", active, err)
	}

	stored, _ := users.FindByID(ctx, u.ID)
	if stored.Subscribed || !stored.SubscriptionExpiresAt.IsZero() {
		t.Fatal("lapsed subscription must be cleared on the account")
	}
}

func TestSignature(t *testing.T) {
	params := map[string]string{
		"total_amount":     "100",
		"transaction_uuid": "order-1",
		"product_code":     "EPAYTEST",
	}

	// HMAC-SHA256("total_amount=100,transaction_uuid=order-1,product_code=EPAYTEST", "secret").
	// The pair order is the gateway's, not alphabetical.
	const want = "pSKFddx7QsE2A7aj3eAPX/wSbNkWprkQeImE6eMc2iA="
	if got := Signature(params, "secret"); got != want {
		t.Fatalf("signature %q, want %q", got, want)
	}
	// Same fields under the eSewa UAT secret.
	const wantUAT = "SaIizlNk0K2NTTqGRVuZsmJeIicqcCRli6/0I3Vv6rU="
	if got := Signature(params, "8gBm/:&EnhH.1/q"); got != wantUAT {
		t.Fatalf("signature %q, want %q", got, wantUAT)
	}

	// A stale signature entry never feeds back into the digest.
	withSig := map[string]string{
		"total_amount":     "100",
		"transaction_uuid": "order-1",
		"product_code":     "EPAYTEST",
		"signature":        "stale",
	}
	if Signature(withSig, "secret") != want {
		t.Fatal("existing signature entry must be excluded")
	}
}

func TestEsewaIntentIsSigned(t *testing.T) {
	p := NewEsewaProvider("secret", "EPAYTEST")
	intent, err := p.CreateOrder(context.Background(), Order{ID: "order-1", Amount: 100})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	const want = "pSKFddx7QsE2A7aj3eAPX/wSbNkWprkQeImE6eMc2iA="
	if intent.Params["signature"] != want {
		t.Fatalf("intent signature %q, want %q", intent.Params["signature"], want)
	}
}
