package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func testItems() []dto.ItemCandidate {
	return []dto.ItemCandidate{
		{ClientItemID: "it-1", Name: "Burger", Quantity: 2, Price: floatPtr(12.50)},
		{ClientItemID: "it-2", Name: "Fries", Quantity: 1, Price: floatPtr(4.00)},
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := authCaller("user_1", "Alice")

	first, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Len(t, first.ShareCode, 6)

	second, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ShareCode, second.ShareCode)
	require.Equal(t, first.ReceiptID, second.ReceiptID)

	var count int64
	require.NoError(t, db.Model(&models.Receipt{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var items []models.ReceiptItem
	require.NoError(t, db.Where("receipt_id = ?", first.ReceiptID).Find(&items).Error)
	require.Len(t, items, 2)
}

func TestCreateReactivatesArchivedReceipt(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := authCaller("user_1", "Alice")

	created, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)
	require.NoError(t, svc.Archive(owner, "r-1"))

	_, err = svc.Get(owner, created.ShareCode)
	require.ErrorIs(t, err, ErrReceiptNotFound)

	resub, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)
	require.Equal(t, created.ShareCode, resub.ShareCode)

	view, err := svc.Get(owner, created.ShareCode)
	require.NoError(t, err)
	require.True(t, view.IsActive)
}

func TestCreateNormalizesItems(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := guestCaller(testGuestID)

	created, err := svc.Create(owner, "r-1", []dto.ItemCandidate{
		{Name: "  Burger  ", Quantity: 0},
		{Name: "   ", Quantity: 2},
		{Name: "Fries", Quantity: -3},
	})
	require.NoError(t, err)

	var items []models.ReceiptItem
	require.NoError(t, db.Where("receipt_id = ?", created.ReceiptID).Order("sort_order ASC").Find(&items).Error)
	require.Len(t, items, 2)

	require.Equal(t, "Burger", items[0].Name)
	require.Equal(t, 1, items[0].Quantity)
	require.Equal(t, "sort:0", items[0].Key())

	require.Equal(t, "Fries", items[1].Name)
	require.Equal(t, 1, items[1].Quantity)
	require.Equal(t, "sort:2", items[1].Key())
}

func TestCreateRequiresIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)

	_, err := svc.Create(identity.Resolve(nil, "bogus"), "r-1", testItems())
	require.ErrorIs(t, err, identity.ErrAuthenticationRequired)
}

func TestCreateConsumesAllowance(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := authCaller("user_1", "Alice")

	for i, id := range []string{"r-1", "r-2", "r-3"} {
		resp, err := svc.Create(owner, id, testItems())
		require.NoError(t, err, "receipt %d", i)
		require.Equal(t, "free", resp.AllowanceSource)
	}

	_, err := svc.Create(owner, "r-4", testItems())
	require.ErrorIs(t, err, ErrAllowanceExhausted)

	// A purchased credit unblocks the next receipt.
	require.NoError(t, db.Model(&models.User{}).
		Where("token_identifier = ?", owner.Auth.TokenIdentifier).
		Update("bill_credits_balance", 1).Error)

	resp, err := svc.Create(owner, "r-4", testItems())
	require.NoError(t, err)
	require.Equal(t, "credit", resp.AllowanceSource)

	// Idempotent re-submission never spends another slot.
	resub, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)
	require.Empty(t, resub.AllowanceSource)
}

func TestGuestCreateSkipsAllowance(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := guestCaller(testGuestID)

	for _, id := range []string{"r-1", "r-2", "r-3", "r-4", "r-5"} {
		_, err := svc.Create(owner, id, testItems())
		require.NoError(t, err)
	}
}

func TestGetRejectsMalformedCode(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)

	_, err := svc.Get(guestCaller(testGuestID), "12345")
	require.ErrorIs(t, err, ErrInvalidShareCode)

	_, err = svc.Get(guestCaller(testGuestID), "abc123")
	require.ErrorIs(t, err, ErrInvalidShareCode)
}

func TestGetCanManage(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	owner := authCaller("user_1", "Alice")

	created, err := svc.Create(owner, "r-1", testItems())
	require.NoError(t, err)

	view, err := svc.Get(owner, created.ShareCode)
	require.NoError(t, err)
	require.True(t, view.CanManage)

	view, err = svc.Get(authCaller("user_2", "Bob"), created.ShareCode)
	require.NoError(t, err)
	require.False(t, view.CanManage)

	view, err = svc.Get(guestCaller(testGuestID), created.ShareCode)
	require.NoError(t, err)
	require.False(t, view.CanManage)
}

func TestArchiveMissingReceiptIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)

	require.NoError(t, svc.Archive(authCaller("user_1", "Alice"), "never-submitted"))
}

func TestGetFallsBackToLegacyPayload(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)

	payload := `{"id":"r-legacy","items":[{"id":"it-1","name":"Burger","quantity":2}]}`
	guestID := testGuestID
	receipt := models.Receipt{
		ID:              uuid.New(),
		ClientReceiptID: "r-legacy",
		OwnerKey:        identity.GuestKeyPrefix + guestID,
		GuestDeviceID:   &guestID,
		ShareCode:       "111111",
		IsActive:        true,
		LegacyPayload:   &payload,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Create(&receipt).Error)

	view, err := svc.Get(guestCaller(testGuestID), "111111")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, "Burger", view.Items[0].Name)
	require.Equal(t, "it-1", view.Items[0].ItemKey)
}

func TestListRecentMergesOwnedAndJoined(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	claims := NewClaimService(db)

	alice := authCaller("alice", "Alice")
	bob := authCaller("bob", "Bob")

	mine, err := svc.Create(alice, "r-mine", testItems())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	theirs, err := svc.Create(bob, "r-theirs", testItems())
	require.NoError(t, err)

	// Alice joins Bob's receipt by claiming on it.
	time.Sleep(5 * time.Millisecond)
	_, err = claims.UpdateClaim(alice, theirs.ShareCode, "it-1", 1)
	require.NoError(t, err)

	recent, err := svc.ListRecent(alice, 10, false)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Joined after created, so Bob's receipt sorts first.
	require.Equal(t, theirs.ReceiptID, recent[0].ID)
	require.False(t, recent[0].IsOwner)
	require.Empty(t, recent[0].ClientReceiptID)

	require.Equal(t, mine.ReceiptID, recent[1].ID)
	require.True(t, recent[1].IsOwner)
	require.Equal(t, "r-mine", recent[1].ClientReceiptID)
}

func TestListRecentFiltersArchived(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	alice := authCaller("alice", "Alice")

	kept, err := svc.Create(alice, "r-keep", testItems())
	require.NoError(t, err)
	_, err = svc.Create(alice, "r-gone", testItems())
	require.NoError(t, err)
	require.NoError(t, svc.Archive(alice, "r-gone"))

	recent, err := svc.ListRecent(alice, 10, false)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, kept.ReceiptID, recent[0].ID)

	all, err := svc.ListRecent(alice, 10, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestListRecentClampsLimit(t *testing.T) {
	db := newTestDB(t)
	svc := newReceiptService(db)
	alice := authCaller("alice", "Alice")

	_, err := svc.Create(alice, "r-1", testItems())
	require.NoError(t, err)
	_, err = svc.Create(alice, "r-2", testItems())
	require.NoError(t, err)

	recent, err := svc.ListRecent(alice, 0, false)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
