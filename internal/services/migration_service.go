package services

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"gorm.io/gorm"
)

// MigrationService re-parents everything an anonymous device accumulated onto
// a freshly authenticated identity: receipts, participant rows and claims, in
// one transaction. Running it twice is safe; a second invocation finds no
// guest-keyed rows and migrates nothing.
type MigrationService struct {
	db *gorm.DB
}

func NewMigrationService(db *gorm.DB) *MigrationService {
	return &MigrationService{db: db}
}

func (s *MigrationService) Migrate(auth *identity.AuthIdentity, rawGuestID string) (*dto.MigrationResult, error) {
	if auth == nil || auth.TokenIdentifier == "" {
		return nil, identity.ErrAuthenticationRequired
	}
	guestID := identity.NormalizeGuestID(rawGuestID)
	if guestID == "" {
		return nil, ErrInvalidGuestID
	}

	guestKey := identity.GuestKeyPrefix + guestID
	authKey := identity.AuthKeyPrefix + auth.TokenIdentifier
	now := time.Now().UTC()

	var result dto.MigrationResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Receipts: re-point ownership to the authenticated identity and
		// clear the guest id. Done row by row because (owner_key,
		// client_receipt_id) is unique: when the signed-in side already
		// re-submitted the same client receipt id, that copy is current and
		// the guest copy gets archived instead of re-parented.
		var guestReceipts []models.Receipt
		if err := tx.Where("guest_device_id = ?", guestID).Find(&guestReceipts).Error; err != nil {
			return err
		}
		for i := range guestReceipts {
			gr := &guestReceipts[i]

			var duplicates int64
			if err := tx.Model(&models.Receipt{}).
				Where("owner_key = ? AND client_receipt_id = ?", authKey, gr.ClientReceiptID).
				Count(&duplicates).Error; err != nil {
				return err
			}
			if duplicates > 0 {
				if err := tx.Model(gr).Updates(map[string]interface{}{
					"is_active":       false,
					"guest_device_id": nil,
					"updated_at":      now,
				}).Error; err != nil {
					return err
				}
				continue
			}

			if err := tx.Model(gr).Updates(map[string]interface{}{
				"owner_key":              authKey,
				"owner_token_identifier": auth.TokenIdentifier,
				"owner_subject":          auth.Subject,
				"owner_issuer":           auth.Issuer,
				"guest_device_id":        nil,
				"updated_at":             now,
			}).Error; err != nil {
				return err
			}
			result.ReceiptsMigrated++
		}

		var guestParticipants []models.ReceiptParticipant
		if err := tx.Where("participant_key = ?", guestKey).Find(&guestParticipants).Error; err != nil {
			return err
		}

		for i := range guestParticipants {
			gp := &guestParticipants[i]

			migrated, err := s.migrateClaims(tx, gp.ReceiptID, guestKey, authKey, now)
			if err != nil {
				return err
			}
			result.ClaimsMigrated += migrated

			var existing models.ReceiptParticipant
			err = tx.Where("receipt_id = ? AND participant_key = ?", gp.ReceiptID, authKey).
				First(&existing).Error
			switch {
			case err == nil:
				// The authenticated identity already joined this receipt from
				// another device: keep that row, fold the guest one away.
				name := existing.DisplayName
				if strings.TrimSpace(name) == "" || name == identity.GuestName {
					name = authName(auth, gp.DisplayName)
				}
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"display_name":     name,
					"token_identifier": auth.TokenIdentifier,
					"guest_device_id":  nil,
					"updated_at":       now,
				}).Error; err != nil {
					return err
				}
				if err := tx.Delete(gp).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Re-key in place: cheaper than delete+insert and preserves
				// the original join time.
				if err := tx.Model(gp).Updates(map[string]interface{}{
					"participant_key":  authKey,
					"token_identifier": auth.TokenIdentifier,
					"guest_device_id":  nil,
					"display_name":     authName(auth, gp.DisplayName),
					"updated_at":       now,
				}).Error; err != nil {
					return err
				}
			default:
				return err
			}
			result.ParticipantsMigrated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("guest migration completed",
		"receipts", result.ReceiptsMigrated,
		"participants", result.ParticipantsMigrated,
		"claims", result.ClaimsMigrated,
	)
	return &result, nil
}

// migrateClaims moves one receipt's guest-keyed claims onto the authenticated
// key: same item means quantities merge by summing (both rows already counted
// toward the item cap, so the sum preserves the invariant); otherwise the
// claim is re-keyed in place.
func (s *MigrationService) migrateClaims(tx *gorm.DB, receiptID uuid.UUID, guestKey, authKey string, now time.Time) (int, error) {
	var guestClaims []models.ReceiptClaim
	if err := tx.Where("receipt_id = ? AND participant_key = ?", receiptID, guestKey).Find(&guestClaims).Error; err != nil {
		return 0, err
	}

	migrated := 0
	for i := range guestClaims {
		gc := &guestClaims[i]

		var authClaim models.ReceiptClaim
		err := tx.Where("receipt_id = ? AND item_key = ? AND participant_key = ?",
			receiptID, gc.ItemKey, authKey).First(&authClaim).Error
		switch {
		case err == nil:
			if err := tx.Model(&authClaim).Updates(map[string]interface{}{
				"quantity":   authClaim.Quantity + gc.Quantity,
				"updated_at": now,
			}).Error; err != nil {
				return migrated, err
			}
			if err := tx.Delete(gc).Error; err != nil {
				return migrated, err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Model(gc).Updates(map[string]interface{}{
				"participant_key": authKey,
				"updated_at":      now,
			}).Error; err != nil {
				return migrated, err
			}
		default:
			return migrated, err
		}
		migrated++
	}
	return migrated, nil
}

func authName(auth *identity.AuthIdentity, fallback string) string {
	if name := strings.TrimSpace(auth.Name); name != "" {
		return name
	}
	if strings.TrimSpace(fallback) != "" && fallback != identity.GuestName {
		return fallback
	}
	return identity.FriendName
}
