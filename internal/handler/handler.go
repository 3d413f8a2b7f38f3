package handler

import (
	"errors"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/internal/service"

	"github.com/gofiber/fiber/v2"
)

// actorFromCtx builds the audit actor for the current request. The user id is
// set by the auth middleware; unauthenticated paths fall back to "system".
func actorFromCtx(c *fiber.Ctx) audit.Actor {
	userID := "system"
	if v, ok := c.Locals("user_id").(string); ok && v != "" {
		userID = v
	}
	return audit.Actor{
		UserID:    userID,
		IPAddress: audit.ClientAddress(c.IP(), c.Get("X-Forwarded-For"), c.Get("X-Real-IP"), c.Context().RemoteAddr().String()),
		UserAgent: audit.UserAgentOrUnknown(c.Get("User-Agent")),
	}
}

// fail maps a service error onto an HTTP response. Domain errors surface
// their message; anything else becomes a generic 500.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidOperation):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// listOptions reads skip/take pagination from the query string.
func listOptions(c *fiber.Ctx) repository.ListOptions {
	return repository.ListOptions{
		Skip: c.QueryInt("skip", 0),
		Take: c.QueryInt("take", 10),
	}
}

func paged(items interface{}, total int64) fiber.Map {
	return fiber.Map{"data": items, "total": total}
}
