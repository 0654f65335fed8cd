// Package requestid propagates a request ID through contexts and HTTP
// handlers for log correlation.
package requestid

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderName is the HTTP header carrying the request ID.
const HeaderName = "X-Request-ID"

// New generates a request ID and stores it in the context.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return context.WithValue(ctx, ctxKey{}, id), id
}

// WithRequestID stores an existing request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID, generating one if absent.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Middleware returns a Fiber middleware that accepts an incoming request ID
// or assigns a fresh one, and echoes it on the response.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals("request_id", id)
		c.Set(HeaderName, id)
		return c.Next()
	}
}
