package handler

import (
	"go-admin-rbac/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuditHandler exposes the audit trail read-only. Entries are written by the
// emitter; nothing mutates them through the API.
type AuditHandler struct {
	auditRepo repository.AuditRepository
}

func NewAuditHandler(auditRepo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// GetAuditLogs lists audit entries, newest first
// GET /api/v1/audit-logs?entity_type=Module&entity_id=<uuid>
func (h *AuditHandler) GetAuditLogs(c *fiber.Ctx) error {
	filter := repository.AuditListFilter{
		ListOptions: listOptions(c),
		EntityType:  c.Query("entity_type"),
	}
	if raw := c.Query("entity_id"); raw != "" {
		entityID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid entity_id"})
		}
		filter.EntityID = &entityID
	}

	entries, total, err := h.auditRepo.FindAll(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch audit logs"})
	}
	return c.JSON(paged(entries, total))
}

// GetAuditLog returns a single audit entry
// GET /api/v1/audit-logs/:id
func (h *AuditHandler) GetAuditLog(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid audit log ID"})
	}

	entry, err := h.auditRepo.FindByID(id)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Audit log not found"})
	}
	return c.JSON(entry)
}
