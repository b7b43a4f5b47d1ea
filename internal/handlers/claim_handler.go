package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/services"
)

type ClaimHandler struct {
	claims        *services.ClaimService
	participants  *services.ParticipantService
	notifications *services.NotificationService
}

func NewClaimHandler(claims *services.ClaimService, participants *services.ParticipantService, notifications *services.NotificationService) *ClaimHandler {
	return &ClaimHandler{claims: claims, participants: participants, notifications: notifications}
}

func (h *ClaimHandler) Join(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	participant, err := h.participants.Join(caller, c.Params("code"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"participant_key": participant.ParticipantKey,
		"display_name":    participant.DisplayName,
		"joined_at":       participant.JoinedAt,
	})
}

func (h *ClaimHandler) Live(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	view, err := h.claims.Live(caller, c.Params("code"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(view)
}

func (h *ClaimHandler) UpdateClaim(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	var req dto.UpdateClaimRequest
	if err := c.BodyParser(&req); err != nil || req.ItemKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request"})
	}

	result, err := h.claims.UpdateClaim(caller, c.Params("code"), req.ItemKey, req.Delta)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// DeclarePayment records the caller's settle-up intent and runs the
// notification gate afterwards. A failed push never fails the declaration.
func (h *ClaimHandler) DeclarePayment(c *fiber.Ctx) error {
	caller := identity.FromContext(c)
	code := c.Params("code")

	var req dto.DeclarePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request"})
	}

	participant, err := h.participants.DeclarePayment(caller, code, req.Method, req.Amount)
	if err != nil {
		return errorJSON(c, err)
	}

	notified, err := h.notifications.NotifyPaymentDeclared(
		code, participant.ParticipantKey, participant.DisplayName, req.Amount, req.Method)
	if err != nil {
		slog.Error("payment notification failed", "receipt_code", code, "error", err.Error())
		notified = false
	}

	return c.JSON(fiber.Map{
		"payment_status": participant.PaymentStatus,
		"notified":       notified,
	})
}

func (h *ClaimHandler) ConfirmPayment(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	var req dto.ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil || req.ParticipantKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request"})
	}

	if err := h.participants.ConfirmPayment(caller, c.Params("code"), req.ParticipantKey); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"confirmed": true})
}
