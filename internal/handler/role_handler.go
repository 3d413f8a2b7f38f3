package handler

import (
	"go-admin-rbac/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RoleHandler struct {
	roleService service.RoleService
	permService service.PermissionService
}

func NewRoleHandler(roleService service.RoleService, permService service.PermissionService) *RoleHandler {
	return &RoleHandler{roleService: roleService, permService: permService}
}

// CreateRole registers a new role
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *fiber.Ctx) error {
	var req service.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	role, err := h.roleService.Create(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Role created successfully",
		"data":    role,
	})
}

// GetRoles lists all roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, total, err := h.roleService.List(listOptions(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(paged(roles, total))
}

// GetRole returns a single role with its grants
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	role, err := h.roleService.GetByID(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(role)
}

// UpdateRole applies a partial update
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	var req service.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	role, err := h.roleService.Update(id, &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"data":    role,
	})
}

// DeleteRole removes a role, its grants and its user assignments
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	if err := h.roleService.Delete(id, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}

// GetRolePermissions lists a role's grants
// GET /api/v1/roles/:id/permissions
func (h *RoleHandler) GetRolePermissions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	perms, err := h.permService.ListByRole(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(perms)
}

// GrantPermission creates or updates a grant for a role
// POST /api/v1/roles/:id/permissions
func (h *RoleHandler) GrantPermission(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	var req service.GrantPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	req.RoleID = id

	perm, err := h.permService.Grant(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Permission granted successfully",
		"data":    perm,
	})
}

// RevokePermission removes the grant for a (role, module, option) target
// DELETE /api/v1/roles/:id/permissions?module_id=<uuid>&option_id=<uuid>
func (h *RoleHandler) RevokePermission(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	moduleID, err := uuid.Parse(c.Query("module_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module_id"})
	}

	var optionID *uuid.UUID
	if raw := c.Query("option_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid option_id"})
		}
		optionID = &parsed
	}

	if err := h.permService.Revoke(id, moduleID, optionID, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Permission revoked successfully"})
}

// ResolvePermission answers an access question without mutating anything
// GET /api/v1/permissions/resolve?role=<name>&module=<key>&option=<key>
func (h *RoleHandler) ResolvePermission(c *fiber.Ctx) error {
	roleName := c.Query("role")
	moduleKey := c.Query("module")
	if roleName == "" || moduleKey == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Query params 'role' and 'module' are required"})
	}

	allowed, err := h.permService.ResolveByKeys(roleName, moduleKey, c.Query("option"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"role":    roleName,
		"module":  moduleKey,
		"option":  c.Query("option"),
		"allowed": allowed,
	})
}
