package subscription

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Provider is a connector to an external payment processor. Real payment
// round-trips stay outside this service; only order intent construction and
// payment verification cross this boundary.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, order Order) (Intent, error)
	VerifyPayment(ctx context.Context, order Order, reference string) (bool, error)
}

// EsewaProvider builds signed eSewa checkout intents. The signature covers
// total_amount, transaction_uuid and product_code joined in key=value form,
// HMAC-SHA256 over the merchant secret, base64 encoded.
type EsewaProvider struct {
	secret      string
	productCode string
}

// NewEsewaProvider constructs the eSewa connector.
func NewEsewaProvider(secret, productCode string) *EsewaProvider {
	return &EsewaProvider{secret: secret, productCode: productCode}
}

// Name returns the provider identifier stored on orders.
func (p *EsewaProvider) Name() string { return "esewa" }

// CreateOrder returns the signed redirect parameters for the checkout form.
func (p *EsewaProvider) CreateOrder(_ context.Context, order Order) (Intent, error) {
	params := map[string]string{
		"total_amount":     fmt.Sprintf("%d", order.Amount),
		"transaction_uuid": order.ID,
		"product_code":     p.productCode,
	}
	params["signature"] = Signature(params, p.secret)
	return Intent{Provider: p.Name(), Params: params}, nil
}

// VerifyPayment accepts the provider callback reference. The transaction
// status lookup against eSewa's API is the collaborator's concern; a
// non-empty reference from the signed redirect is treated as settled.
func (p *EsewaProvider) VerifyPayment(_ context.Context, _ Order, reference string) (bool, error) {
	return reference != "", nil
}

// signedFields is the exact signing order eSewa requires. The gateway
// rejects signatures computed over any other ordering.
var signedFields = []string{"total_amount", "transaction_uuid", "product_code"}

// Signature computes the eSewa request signature: the signed fields joined
// as key=value pairs in gateway order, HMAC-SHA256 over the merchant secret,
// base64 encoded. Parameters outside the signed set are ignored.
func Signature(params map[string]string, secret string) string {
	pairs := make([]string, 0, len(signedFields))
	for _, k := range signedFields {
		if v, ok := params[k]; ok {
			pairs = append(pairs, k+"="+v)
		}
	}
	data := strings.Join(pairs, ",")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// StaticProvider approves every order with a synthetic reference. Used in
// development and tests.
type StaticProvider struct{}

// Name returns the provider identifier stored on orders.
func (StaticProvider) Name() string { return "static" }

// CreateOrder approves the order with a synthetic reference.
func (StaticProvider) CreateOrder(_ context.Context, order Order) (Intent, error) {
	return Intent{
		Provider: "static",
		Params:   map[string]string{"transaction_uuid": order.ID, "reference": uuid.NewString()},
	}, nil
}

// VerifyPayment approves every non-empty reference.
func (StaticProvider) VerifyPayment(_ context.Context, _ Order, reference string) (bool, error) {
	return reference != "", nil
}
