package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/services"
)

type MigrationHandler struct {
	migrations *services.MigrationService
	billing    *services.BillingService
}

func NewMigrationHandler(migrations *services.MigrationService, billingService *services.BillingService) *MigrationHandler {
	return &MigrationHandler{migrations: migrations, billing: billingService}
}

// Migrate re-parents a guest device's receipts, participant rows and claims
// onto the now-authenticated caller. JWT middleware guarantees a verified
// identity here.
func (h *MigrationHandler) Migrate(c *fiber.Ctx) error {
	auth := identity.AuthFromContext(c)

	var req dto.MigrateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request"})
	}

	result, err := h.migrations.Migrate(auth, req.GuestDeviceID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// Usage exposes the recomputed billing window and allowance state for the
// paywall screen.
func (h *MigrationHandler) Usage(c *fiber.Ctx) error {
	auth := identity.AuthFromContext(c)

	state, freeLimit, err := h.billing.UsageState(auth, time.Now().UTC())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"window":          state.Window,
		"free_bills_used": state.FreeBillsUsed,
		"free_bill_limit": freeLimit,
		"bill_credits":    state.BillCredits,
	})
}
