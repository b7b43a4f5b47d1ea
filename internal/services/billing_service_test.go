package services

import (
	"testing"
	"time"

	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestUsageStateProvisionsUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())
	auth := testAuth("user_1", "Alice")
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	state, limit, err := svc.UsageState(auth, now)
	require.NoError(t, err)
	require.Equal(t, 3, limit)
	require.Equal(t, 0, state.FreeBillsUsed)
	require.Equal(t, 0, state.BillCredits)
	require.True(t, state.Window.Contains(now))

	var user models.User
	require.NoError(t, db.Where("token_identifier = ?", auth.TokenIdentifier).First(&user).Error)
	require.True(t, user.CreatedAt.Equal(now))
}

func TestUsageStateRequiresAuth(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())

	_, _, err := svc.UsageState(nil, time.Now())
	require.ErrorIs(t, err, identity.ErrAuthenticationRequired)
}

func TestUsageStateResetsStaleWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())
	receipts := newReceiptService(db)

	alice := authCaller("user_1", "Alice")
	for _, id := range []string{"r-1", "r-2"} {
		_, err := receipts.Create(alice, id, testItems())
		require.NoError(t, err)
	}

	auth := testAuth("user_1", "Alice")
	state, _, err := svc.UsageState(auth, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 2, state.FreeBillsUsed)

	// A reading from the following period derives a fresh window with the
	// counter back at zero.
	later, _, err := svc.UsageState(auth, time.Now().UTC().AddDate(0, 1, 3))
	require.NoError(t, err)
	require.Equal(t, 0, later.FreeBillsUsed)
}

func TestHandlePurchaseEventGrantsCredits(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())
	auth := testAuth("user_1", "Alice")

	_, _, err := svc.UsageState(auth, time.Now().UTC())
	require.NoError(t, err)

	err = svc.HandlePurchaseEvent(&dto.RevenueCatEvent{
		Type:      "NON_RENEWING_PURCHASE",
		ProductID: "bill_credits_10",
		AppUserID: auth.TokenIdentifier,
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("token_identifier = ?", auth.TokenIdentifier).First(&user).Error)
	require.Equal(t, 10, user.BillCreditsBalance)
}

func TestHandlePurchaseEventSkipsOtherTypes(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())

	require.NoError(t, svc.HandlePurchaseEvent(&dto.RevenueCatEvent{
		Type:      "RENEWAL",
		ProductID: "bill_credits_10",
		AppUserID: "auth-user-we-never-made",
	}))

	require.NoError(t, svc.HandlePurchaseEvent(&dto.RevenueCatEvent{
		Type:      "NON_RENEWING_PURCHASE",
		ProductID: "premium_monthly",
		AppUserID: "auth-user-we-never-made",
	}))
}

func TestHandlePurchaseEventErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db, testConfig())

	err := svc.HandlePurchaseEvent(&dto.RevenueCatEvent{
		Type:      "NON_RENEWING_PURCHASE",
		ProductID: "bill_credits_zero",
		AppUserID: "whoever",
	})
	require.Error(t, err)

	err = svc.HandlePurchaseEvent(&dto.RevenueCatEvent{
		Type:      "NON_RENEWING_PURCHASE",
		ProductID: "bill_credits_5",
		AppUserID: "no-such-user",
	})
	require.Error(t, err)
}
