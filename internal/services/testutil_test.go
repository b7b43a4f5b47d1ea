package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/snapsplit/snapsplit-backend/internal/config"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testGuestID       = "a1b2c3d4-e5f6-7890-abcd-ef0123456789"
	secondTestGuestID = "ffffffff-0000-1111-2222-333333333333"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Receipt{},
		&models.ReceiptItem{},
		&models.ReceiptClaim{},
		&models.ReceiptParticipant{},
		&models.User{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{FreeBillsPerPeriod: 3}
}

func authCaller(sub, name string) identity.Identity {
	return identity.Resolve(&identity.AuthIdentity{
		TokenIdentifier: "https://auth.test|" + sub,
		Subject:         sub,
		Issuer:          "https://auth.test",
		Name:            name,
	}, "")
}

func guestCaller(guestID string) identity.Identity {
	return identity.Resolve(nil, guestID)
}

func newReceiptService(db *gorm.DB) *ReceiptService {
	cfg := testConfig()
	return NewReceiptService(db, cfg, NewBillingService(db, cfg))
}
