package handler

import (
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OptionHandler struct {
	optionService service.OptionService
}

func NewOptionHandler(optionService service.OptionService) *OptionHandler {
	return &OptionHandler{optionService: optionService}
}

// CreateOption attaches a new option to a module
// POST /api/v1/options
func (h *OptionHandler) CreateOption(c *fiber.Ctx) error {
	var req service.CreateOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	option, err := h.optionService.Create(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Option created successfully",
		"data":    option,
	})
}

// GetOptions lists options, optionally scoped to one module
// GET /api/v1/options?module_id=<uuid>
func (h *OptionHandler) GetOptions(c *fiber.Ctx) error {
	filter := repository.OptionListFilter{ListOptions: listOptions(c)}
	if raw := c.Query("module_id"); raw != "" {
		moduleID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid module_id"})
		}
		filter.ModuleID = &moduleID
	}

	options, total, err := h.optionService.List(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(paged(options, total))
}

// GetOption returns a single option
// GET /api/v1/options/:id
func (h *OptionHandler) GetOption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid option ID"})
	}

	option, err := h.optionService.GetByID(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(option)
}

// UpdateOption applies a partial update
// PUT /api/v1/options/:id
func (h *OptionHandler) UpdateOption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid option ID"})
	}

	var req service.UpdateOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	option, err := h.optionService.Update(id, &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Option updated successfully",
		"data":    option,
	})
}

// DeleteOption removes an option and the grants that target it
// DELETE /api/v1/options/:id
func (h *OptionHandler) DeleteOption(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid option ID"})
	}

	if err := h.optionService.Delete(id, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Option deleted successfully"})
}
