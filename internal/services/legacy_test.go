package services

import (
	"testing"

	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDecodeLegacyItems(t *testing.T) {
	payload := `{"id":"r-1","items":[
		{"id":"it-1","name":"Burger","quantity":2,"price":12.5},
		{"name":"  Fries  ","quantity":1},
		{"name":"","quantity":3},
		{"id":"it-4","name":"Soda"}
	]}`

	items, err := decodeLegacyItems(payload, "r-1")
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.Equal(t, "Burger", items[0].Name)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, 12.5, *items[0].Price)
	require.Equal(t, "it-1", items[0].Key())

	require.Equal(t, "Fries", items[1].Name)
	require.Equal(t, "sort:1", items[1].Key())

	// Missing quantity defaults to 1.
	require.Equal(t, 1, items[2].Quantity)
}

func TestDecodeLegacyItemsRejectsNonObject(t *testing.T) {
	_, err := decodeLegacyItems(`[{"name":"Burger"}]`, "r-1")
	require.Error(t, err)
}

func TestDecodeLegacyItemsRejectsReceiptList(t *testing.T) {
	_, err := decodeLegacyItems(`{"receipts":[{"id":"r-1"}]}`, "r-1")
	require.Error(t, err)
}

func TestDecodeLegacyItemsRejectsIDMismatch(t *testing.T) {
	_, err := decodeLegacyItems(`{"id":"r-2","items":[{"name":"Burger"}]}`, "r-1")
	require.Error(t, err)
}

func TestLegacyItemsOrEmptyAbsorbsFailures(t *testing.T) {
	bad := "not json at all"
	receipt := &models.Receipt{ClientReceiptID: "r-1", LegacyPayload: &bad}
	require.Empty(t, legacyItemsOrEmpty(receipt))

	receipt.LegacyPayload = nil
	require.Empty(t, legacyItemsOrEmpty(receipt))

	good := `{"id":"r-1","items":[{"name":"Burger"}]}`
	receipt.LegacyPayload = &good
	require.Len(t, legacyItemsOrEmpty(receipt), 1)
}
