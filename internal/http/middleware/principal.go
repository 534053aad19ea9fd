package middleware

import "github.com/gofiber/fiber/v2"

const (
	// PrincipalHeader carries the authenticated caller identity, set by the
	// external auth layer in front of this service. The value is opaque here;
	// no credential verification happens in this process.
	PrincipalHeader = "X-Principal"
	// PrincipalLocalKey is the key used to store the principal in Fiber's context locals.
	PrincipalLocalKey = "principal"
	// AnonymousPrincipal marks requests that arrived without an identity.
	AnonymousPrincipal = "anonymous"
)

// Principal stores the caller identity from PrincipalHeader in context locals,
// falling back to the anonymous marker when the header is absent. Handlers
// pass the value through to the engine, which rejects anonymous callers.
func Principal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := c.Get(PrincipalHeader)
		if p == "" {
			p = AnonymousPrincipal
		}
		c.Locals(PrincipalLocalKey, p)
		return c.Next()
	}
}
