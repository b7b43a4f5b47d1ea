package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"gorm.io/gorm"
)

// ClaimService owns the many-to-many mapping of participants to claimed
// quantities per item. Core invariant: total claimed quantity per item never
// exceeds the item's quantity. Concurrent claimers are resolved by
// truncation, not rejection.
type ClaimService struct {
	db *gorm.DB
}

func NewClaimService(db *gorm.DB) *ClaimService {
	return &ClaimService{db: db}
}

// UpdateClaim applies a signed quantity delta to the caller's claim on one
// item. A positive delta is truncated to what remains unclaimed; a negative
// delta is truncated to what the caller holds. The applied delta comes back
// so the client can detect truncation and reconcile.
func (s *ClaimService) UpdateClaim(caller identity.Identity, code, itemKey string, delta int) (*dto.ClaimResult, error) {
	if _, err := caller.ParticipantKey(); err != nil {
		return nil, err
	}

	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return nil, err
	}

	var result dto.ClaimResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		items, err := itemsForReceipt(tx, receipt)
		if err != nil {
			return err
		}
		var item *models.ReceiptItem
		for i := range items {
			if items[i].Key() == itemKey {
				item = &items[i]
				break
			}
		}
		if item == nil {
			return ErrItemNotFound
		}

		// Any claim action puts the caller on the roster; joining is implicit.
		participant, err := upsertParticipant(tx, receipt.ID, caller)
		if err != nil {
			return err
		}

		var claims []models.ReceiptClaim
		if err := tx.Where("receipt_id = ? AND item_key = ?", receipt.ID, itemKey).Find(&claims).Error; err != nil {
			return err
		}

		totalClaimed := 0
		var own *models.ReceiptClaim
		for i := range claims {
			totalClaimed += claims[i].Quantity
			if claims[i].ParticipantKey == participant.ParticipantKey {
				own = &claims[i]
			}
		}
		existingQuantity := 0
		if own != nil {
			existingQuantity = own.Quantity
		}

		applied := 0
		switch {
		case delta > 0:
			if remaining := item.Quantity - totalClaimed; delta < remaining {
				applied = delta
			} else if remaining > 0 {
				applied = remaining
			}
		case delta < 0:
			applied = -min(-delta, existingQuantity)
		}

		newQuantity := existingQuantity + applied
		result = dto.ClaimResult{AppliedDelta: applied, Quantity: newQuantity}
		if applied == 0 {
			return nil
		}

		now := time.Now().UTC()
		switch {
		case newQuantity <= 0 && own != nil:
			return tx.Delete(own).Error
		case own != nil:
			return tx.Model(own).Updates(map[string]interface{}{
				"quantity":   newQuantity,
				"updated_at": now,
			}).Error
		default:
			return tx.Create(&models.ReceiptClaim{
				ID:             uuid.New(),
				ReceiptID:      receipt.ID,
				ItemKey:        itemKey,
				ParticipantKey: participant.ParticipantKey,
				Quantity:       newQuantity,
				CreatedAt:      now,
				UpdatedAt:      now,
			}).Error
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Live returns the full reconciled view: items annotated with claimed,
// viewer-claimed and remaining quantities, plus the roster in join order.
// It never requires a prior write and tolerates viewers with no identity.
func (s *ClaimService) Live(viewer identity.Identity, code string) (*dto.LiveView, error) {
	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return nil, err
	}

	items, err := itemsForReceipt(s.db, receipt)
	if err != nil {
		return nil, err
	}

	var claims []models.ReceiptClaim
	if err := s.db.Where("receipt_id = ?", receipt.ID).Find(&claims).Error; err != nil {
		return nil, err
	}

	var participants []models.ReceiptParticipant
	if err := s.db.Where("receipt_id = ?", receipt.ID).Order("joined_at ASC").Find(&participants).Error; err != nil {
		return nil, err
	}

	// Anonymous viewers simply see zero viewer-claimed everywhere.
	viewerKey, _ := viewer.ParticipantKey()

	claimed := make(map[string]int, len(items))
	viewerClaimed := make(map[string]int, len(items))
	for _, c := range claims {
		claimed[c.ItemKey] += c.Quantity
		if c.ParticipantKey == viewerKey {
			viewerClaimed[c.ItemKey] += c.Quantity
		}
	}

	view := receiptView(receipt, items, viewer)
	for i := range view.Items {
		key := view.Items[i].ItemKey
		view.Items[i].ClaimedQuantity = claimed[key]
		view.Items[i].ViewerClaimedQuantity = viewerClaimed[key]
		remaining := view.Items[i].Quantity - claimed[key]
		if remaining < 0 {
			remaining = 0
		}
		view.Items[i].RemainingQuantity = remaining
	}

	live := dto.LiveView{
		Receipt:      view,
		Participants: make([]dto.ParticipantView, 0, len(participants)),
	}
	for i := range participants {
		p := &participants[i]
		pv := dto.ParticipantView{
			ParticipantKey: p.ParticipantKey,
			DisplayName:    p.DisplayName,
			IsViewer:       p.ParticipantKey == viewerKey,
			JoinedAt:       p.JoinedAt,
			PaymentStatus:  p.PaymentStatus,
			PaymentMethod:  p.PaymentMethod,
			PaymentAmount:  p.PaymentAmount,
			PaymentAt:      p.PaymentUpdatedAt,
		}
		if pv.IsViewer {
			pv.DisplayName = identity.SelfName
		}
		live.Participants = append(live.Participants, pv)
	}
	return &live, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
