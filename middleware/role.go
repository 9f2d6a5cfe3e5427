package middleware

import (
	"github.com/gofiber/fiber/v2"

	"tenx/models"
)

// RequireRole returns a middleware that rejects requests whose JWT does
// not carry the given role. This only gates the route; workflow
// operations still check the acting identity against the certificate's
// issuer/recipient, a role alone never authorizes a transition.
func RequireRole(required models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(models.Role)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Unauthorized: role not found")
		}
		if role != required {
			return JsonResponse(c, fiber.StatusForbidden, false, nil, "You do not have permission to access this resource!")
		}
		return c.Next()
	}
}
