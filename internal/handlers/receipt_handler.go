package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/services"
)

type ReceiptHandler struct {
	receipts *services.ReceiptService
}

func NewReceiptHandler(receipts *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Create handles first submission and idempotent re-submission of a scanned
// receipt. The item list comes in already normalized by the scanning step.
func (h *ReceiptHandler) Create(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	var req dto.CreateReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request"})
	}

	resp, err := h.receipts.Create(caller, req.ClientReceiptID, req.Items)
	if err != nil {
		return errorJSON(c, err)
	}

	status := fiber.StatusOK
	if resp.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(resp)
}

func (h *ReceiptHandler) Get(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	view, err := h.receipts.Get(caller, c.Params("code"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(view)
}

func (h *ReceiptHandler) Archive(c *fiber.Ctx) error {
	caller := identity.FromContext(c)

	if err := h.receipts.Archive(caller, c.Params("client_receipt_id")); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"archived": true})
}

func (h *ReceiptHandler) ListRecent(c *fiber.Ctx) error {
	caller := identity.FromContext(c)
	limit := c.QueryInt("limit", 20)
	includeArchived := c.QueryBool("include_archived", false)

	recent, err := h.receipts.ListRecent(caller, limit, includeArchived)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"receipts": recent})
}

// errorJSON maps service sentinels onto HTTP statuses. 5xx details are logged
// but not exposed.
func errorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, identity.ErrAuthenticationRequired):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Authentication or a guest device id is required"})
	case errors.Is(err, services.ErrReceiptNotFound), errors.Is(err, services.ErrItemNotFound), errors.Is(err, services.ErrParticipantNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	case errors.Is(err, services.ErrInvalidShareCode), errors.Is(err, services.ErrInvalidGuestID), errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	case errors.Is(err, services.ErrAllowanceExhausted):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Internal server error"})
	}
}
