package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID ensures each request has a stable request identifier for tracing
// and logging. The identifier is echoed in the response header, stored in
// locals, and propagated through the request context so downstream services
// (audit trail, mail logging) can stamp it onto their own records.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Set(requestIDHeader, reqID)
		}

		c.Locals(requestIDHeader, reqID)
		c.SetUserContext(WithRequestID(c.UserContext(), reqID))

		return c.Next()
	}
}

// WithRequestID returns a context carrying the given request identifier.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, reqID)
}

// RequestIDFromContext returns the request identifier propagated by the
// RequestID middleware, or an empty string outside a request.
func RequestIDFromContext(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}
