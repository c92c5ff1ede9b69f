package sync

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	// One call per flush of a device's pending mutations. Partial
	// application is accepted: the response reports batch receipt, not
	// per-operation outcomes.
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		var req UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		svc.ApplyBatch(c.Context(), req.Operations)
		return c.JSON(UploadResponse{Success: true})
	})

	r.Get("/timers", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		timers, err := svc.ListTimers(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(timers)
	})

	r.Get("/activity", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		entries, err := svc.ListActivity(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}
