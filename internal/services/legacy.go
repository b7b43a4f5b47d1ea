package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/snapsplit/snapsplit-backend/internal/models"
)

// Legacy receipts predate the normalized receipt_items table: their items live
// as a JSON blob on the receipt row. Decoding is strict internally but always
// collapses to an empty item list at the boundary; a malformed blob must
// degrade to "no items", never block a read.

var (
	errLegacyNotObject  = errors.New("legacy payload is not a JSON object")
	errLegacyListShape  = errors.New("legacy payload looks like a receipt list")
	errLegacyIDMismatch = errors.New("legacy payload id mismatch")
)

type legacyReceipt struct {
	ID       *string           `json:"id"`
	Receipts []json.RawMessage `json:"receipts"`
	Items    []legacyItem      `json:"items"`
}

type legacyItem struct {
	ID       *string     `json:"id"`
	Name     string      `json:"name"`
	Quantity json.Number `json:"quantity"`
	Price    *float64    `json:"price"`
}

// decodeLegacyItems parses a legacy payload into normalized items. The items
// are not persisted; they exist only for read projections of receipts that
// were never re-submitted in the current format.
func decodeLegacyItems(payload, expectedClientReceiptID string) ([]models.ReceiptItem, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, errLegacyNotObject
	}

	var legacy legacyReceipt
	if err := json.Unmarshal([]byte(trimmed), &legacy); err != nil {
		return nil, fmt.Errorf("legacy payload unmarshal: %w", err)
	}

	// An old client bug sometimes wrote the whole receipt list into a single
	// receipt's payload slot.
	if len(legacy.Receipts) > 0 {
		return nil, errLegacyListShape
	}
	if legacy.ID != nil && *legacy.ID != "" && *legacy.ID != expectedClientReceiptID {
		return nil, errLegacyIDMismatch
	}

	items := make([]models.ReceiptItem, 0, len(legacy.Items))
	for i, li := range legacy.Items {
		name := strings.TrimSpace(li.Name)
		if name == "" {
			continue
		}

		quantity := 1
		if n, err := li.Quantity.Int64(); err == nil && n > 0 {
			quantity = int(n)
		}

		item := models.ReceiptItem{
			Name:      name,
			Quantity:  quantity,
			Price:     li.Price,
			SortOrder: i,
		}
		if li.ID != nil && *li.ID != "" {
			item.ClientItemID = li.ID
		}
		items = append(items, item)
	}
	return items, nil
}

// legacyItemsOrEmpty is the boundary collapse: decode failures degrade to an
// empty list.
func legacyItemsOrEmpty(receipt *models.Receipt) []models.ReceiptItem {
	if receipt.LegacyPayload == nil || *receipt.LegacyPayload == "" {
		return nil
	}
	items, err := decodeLegacyItems(*receipt.LegacyPayload, receipt.ClientReceiptID)
	if err != nil {
		return nil
	}
	return items
}
