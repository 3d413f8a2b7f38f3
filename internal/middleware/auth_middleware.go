package middleware

import (
	"errors"
	"strings"

	"go-admin-rbac/internal/repository"
	"go-admin-rbac/internal/service"
	"go-admin-rbac/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token and loads the user into the request
// context. The DB lookup makes deactivation take effect immediately instead of
// at token expiry.
func RequireAuth(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "User not found"})
		}
		if !user.IsActive {
			return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
		}

		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.Username)
		c.Locals("user_roles", user.RoleNames())

		return c.Next()
	}
}

// RequirePermission gates a route on the permission resolver: access is
// allowed when any of the user's roles resolves to a grant for the given
// module (and option, when non-empty).
func RequirePermission(perms service.PermissionService, moduleKey, optionKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, ok := c.Locals("user_roles").([]string)
		if !ok || len(roles) == 0 {
			return c.Status(403).JSON(fiber.Map{"error": "No roles found"})
		}

		for _, role := range roles {
			allowed, err := perms.ResolveByKeys(role, moduleKey, optionKey)
			if errors.Is(err, service.ErrNotFound) {
				// A stale role name or an unseeded module key is a deny for
				// this role, not a request failure.
				continue
			}
			if err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "Failed to check permissions"})
			}
			if allowed {
				return c.Next()
			}
		}

		target := moduleKey
		if optionKey != "" {
			target += ":" + optionKey
		}
		return c.Status(403).JSON(fiber.Map{"error": "Forbidden: no grant for '" + target + "'"})
	}
}
