package handler

import (
	"go-admin-rbac/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OverviewHandler struct {
	overviewService service.OverviewService
}

func NewOverviewHandler(overviewService service.OverviewService) *OverviewHandler {
	return &OverviewHandler{overviewService: overviewService}
}

// GetOverview returns entity counters and recent audit activity
// GET /api/v1/overview
func (h *OverviewHandler) GetOverview(c *fiber.Ctx) error {
	overview, err := h.overviewService.GetOverview()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(overview)
}
