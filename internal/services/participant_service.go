package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"gorm.io/gorm"
)

// ParticipantService owns the roster of who has touched a receipt. There is
// at most one participant row per (receipt, participant key); repeat actions
// patch the existing row and preserve the original join time.
type ParticipantService struct {
	db *gorm.DB
}

func NewParticipantService(db *gorm.DB) *ParticipantService {
	return &ParticipantService{db: db}
}

// Join puts the caller on the roster without claiming anything.
func (s *ParticipantService) Join(caller identity.Identity, code string) (*models.ReceiptParticipant, error) {
	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return nil, err
	}

	var participant *models.ReceiptParticipant
	err = s.db.Transaction(func(tx *gorm.DB) error {
		participant, err = upsertParticipant(tx, receipt.ID, caller)
		return err
	})
	return participant, err
}

// DeclarePayment records that the caller intends to settle their share with
// the given method and amount. Status starts out pending; the owner confirms
// it out of band. The notification gate runs after this commits.
func (s *ParticipantService) DeclarePayment(caller identity.Identity, code, method string, amount float64) (*models.ReceiptParticipant, error) {
	if method == "" || amount <= 0 {
		return nil, ErrInvalidInput
	}

	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return nil, err
	}

	var participant *models.ReceiptParticipant
	err = s.db.Transaction(func(tx *gorm.DB) error {
		participant, err = upsertParticipant(tx, receipt.ID, caller)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"payment_status":     models.PaymentStatusPending,
			"payment_method":     method,
			"payment_amount":     amount,
			"payment_updated_at": now,
			"updated_at":         now,
		}
		if err := tx.Model(participant).Updates(updates).Error; err != nil {
			return err
		}

		status := models.PaymentStatusPending
		participant.PaymentStatus = &status
		participant.PaymentMethod = &method
		participant.PaymentAmount = &amount
		participant.PaymentUpdatedAt = &now
		return nil
	})
	return participant, err
}

// ConfirmPayment lets the receipt owner mark a pending payment as settled.
func (s *ParticipantService) ConfirmPayment(caller identity.Identity, code, participantKey string) error {
	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return err
	}
	if !ownsReceipt(caller, receipt) {
		return ErrNotOwner
	}

	result := s.db.Model(&models.ReceiptParticipant{}).
		Where("receipt_id = ? AND participant_key = ? AND payment_status = ?",
			receipt.ID, participantKey, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":     models.PaymentStatusConfirmed,
			"payment_updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// upsertParticipant is the insert-or-patch shared by every claim-adjacent
// action: joining is implicit. The first join's timestamp is preserved;
// display name and identity-linkage fields refresh on every call.
func upsertParticipant(tx *gorm.DB, receiptID uuid.UUID, caller identity.Identity) (*models.ReceiptParticipant, error) {
	key, err := caller.ParticipantKey()
	if err != nil {
		return nil, err
	}

	var tokenIdentifier, guestDeviceID *string
	if caller.IsAuthenticated() {
		tokenIdentifier = &caller.Auth.TokenIdentifier
	} else {
		guestDeviceID = &caller.GuestDeviceID
	}

	now := time.Now().UTC()

	var existing models.ReceiptParticipant
	err = tx.Where("receipt_id = ? AND participant_key = ?", receiptID, key).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"display_name":     caller.DisplayName(),
			"token_identifier": tokenIdentifier,
			"guest_device_id":  guestDeviceID,
			"updated_at":       now,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.DisplayName = caller.DisplayName()
		existing.TokenIdentifier = tokenIdentifier
		existing.GuestDeviceID = guestDeviceID
		existing.UpdatedAt = now
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	participant := models.ReceiptParticipant{
		ID:              uuid.New(),
		ReceiptID:       receiptID,
		ParticipantKey:  key,
		TokenIdentifier: tokenIdentifier,
		GuestDeviceID:   guestDeviceID,
		DisplayName:     caller.DisplayName(),
		JoinedAt:        now,
		UpdatedAt:       now,
	}
	if err := tx.Create(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

func ownsReceipt(caller identity.Identity, receipt *models.Receipt) bool {
	return caller.IsAuthenticated() &&
		receipt.OwnerTokenIdentifier != nil &&
		*receipt.OwnerTokenIdentifier == caller.Auth.TokenIdentifier
}
