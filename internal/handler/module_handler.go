package handler

import (
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ModuleHandler struct {
	moduleService service.ModuleService
	optionService service.OptionService
}

func NewModuleHandler(moduleService service.ModuleService, optionService service.OptionService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService, optionService: optionService}
}

// CreateModule registers a new module in the catalog
// POST /api/v1/modules
func (h *ModuleHandler) CreateModule(c *fiber.Ctx) error {
	var req service.CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	module, err := h.moduleService.Create(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Module created successfully",
		"data":    module,
	})
}

// GetModules lists modules with optional filters
// GET /api/v1/modules?roots=true&is_active=true&parent_id=<uuid>
func (h *ModuleHandler) GetModules(c *fiber.Ctx) error {
	filter := repository.ModuleListFilter{
		ListOptions: listOptions(c),
		RootsOnly:   c.QueryBool("roots", false),
	}
	if c.Query("is_active") != "" {
		active := c.QueryBool("is_active")
		filter.IsActive = &active
	}
	if raw := c.Query("parent_id"); raw != "" {
		parentID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid parent_id"})
		}
		filter.ParentModuleID = &parentID
	}

	modules, total, err := h.moduleService.List(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(paged(modules, total))
}

// GetModule returns a single module
// GET /api/v1/modules/:id
func (h *ModuleHandler) GetModule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	module, err := h.moduleService.GetByID(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(module)
}

// GetModuleByKey looks a module up by its stable key
// GET /api/v1/modules/key/:key
func (h *ModuleHandler) GetModuleByKey(c *fiber.Ctx) error {
	module, err := h.moduleService.GetByKey(c.Params("key"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(module)
}

// GetModuleChildren lists the direct children of a module
// GET /api/v1/modules/:id/children
func (h *ModuleHandler) GetModuleChildren(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	children, err := h.moduleService.ListChildren(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(children)
}

// GetModuleSubtree returns a module with all descendants expanded
// GET /api/v1/modules/:id/subtree
func (h *ModuleHandler) GetModuleSubtree(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	tree, err := h.moduleService.Subtree(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tree)
}

// GetModuleOptions lists the options attached to a module
// GET /api/v1/modules/:id/options
func (h *ModuleHandler) GetModuleOptions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	options, err := h.optionService.ListByModule(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(options)
}

// UpdateModule applies a partial update, including reparenting
// PUT /api/v1/modules/:id
func (h *ModuleHandler) UpdateModule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	var req service.UpdateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	module, err := h.moduleService.Update(id, &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Module updated successfully",
		"data":    module,
	})
}

// DeleteModule removes a leaf module and its dependents
// DELETE /api/v1/modules/:id
func (h *ModuleHandler) DeleteModule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid module ID"})
	}

	if err := h.moduleService.Delete(id, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Module deleted successfully"})
}
