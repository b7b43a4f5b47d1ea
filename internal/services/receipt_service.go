package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/billing"
	"github.com/snapsplit/snapsplit-backend/internal/config"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/snapsplit/snapsplit-backend/internal/sharecode"
	"gorm.io/gorm"
)

// ReceiptService owns the receipt record, its ordered line items and
// active/archived status. Repeat submission with the same
// (owner, client receipt id) pair patches in place instead of duplicating.
type ReceiptService struct {
	db      *gorm.DB
	cfg     *config.Config
	billing *BillingService
}

func NewReceiptService(db *gorm.DB, cfg *config.Config, billingService *BillingService) *ReceiptService {
	return &ReceiptService{db: db, cfg: cfg, billing: billingService}
}

// Create inserts a new receipt or, when the owner already submitted this
// client receipt id, reactivates the existing one and replaces its items
// wholesale. The existing share code is returned either way, which makes
// repeated submission idempotent and crash-safe. Only brand-new receipts by
// authenticated owners consume a billing allowance slot.
func (s *ReceiptService) Create(owner identity.Identity, clientReceiptID string, items []dto.ItemCandidate) (*dto.CreateReceiptResponse, error) {
	ownerKey, err := owner.ParticipantKey()
	if err != nil {
		return nil, err
	}
	clientReceiptID = strings.TrimSpace(clientReceiptID)
	if clientReceiptID == "" {
		return nil, ErrInvalidInput
	}

	var resp dto.CreateReceiptResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var existing models.Receipt
		err := tx.Where("owner_key = ? AND client_receipt_id = ?", ownerKey, clientReceiptID).
			First(&existing).Error
		if err == nil {
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"is_active":  true,
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
			if err := replaceItems(tx, existing.ID, items); err != nil {
				return err
			}
			resp = dto.CreateReceiptResponse{
				ReceiptID: existing.ID,
				ShareCode: existing.ShareCode,
				Created:   false,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if owner.IsAuthenticated() {
			source, err := s.billing.consumeAllowanceTx(tx, owner.Auth, now)
			if err != nil {
				return err
			}
			if source == billing.SourceNone {
				return ErrAllowanceExhausted
			}
			resp.AllowanceSource = string(source)
		}

		code, err := sharecode.Generate(func(code string) (bool, error) {
			// Archived receipts keep their rows, so this covers every code
			// ever issued.
			var count int64
			if err := tx.Model(&models.Receipt{}).Where("share_code = ?", code).Count(&count).Error; err != nil {
				return false, err
			}
			return count > 0, nil
		})
		if err != nil {
			return err
		}

		receipt := models.Receipt{
			ID:              uuid.New(),
			ClientReceiptID: clientReceiptID,
			OwnerKey:        ownerKey,
			ShareCode:       code,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if owner.IsAuthenticated() {
			receipt.OwnerTokenIdentifier = &owner.Auth.TokenIdentifier
			receipt.OwnerSubject = &owner.Auth.Subject
			receipt.OwnerIssuer = &owner.Auth.Issuer
		} else {
			receipt.GuestDeviceID = &owner.GuestDeviceID
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		if err := replaceItems(tx, receipt.ID, items); err != nil {
			return err
		}

		resp.ReceiptID = receipt.ID
		resp.ShareCode = receipt.ShareCode
		resp.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns the receipt behind a share code, with items but no claim
// annotations (the live view adds those). Malformed codes are rejected before
// touching storage; archived receipts read as not found.
func (s *ReceiptService) Get(viewer identity.Identity, code string) (*dto.ReceiptView, error) {
	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		return nil, err
	}

	items, err := itemsForReceipt(s.db, receipt)
	if err != nil {
		return nil, err
	}

	view := receiptView(receipt, items, viewer)
	return &view, nil
}

// Archive soft-deletes the caller's receipt. A missing receipt is a no-op,
// not an error, so clients can retry deletes blindly.
func (s *ReceiptService) Archive(owner identity.Identity, clientReceiptID string) error {
	ownerKey, err := owner.ParticipantKey()
	if err != nil {
		return err
	}

	return s.db.Model(&models.Receipt{}).
		Where("owner_key = ? AND client_receipt_id = ?", ownerKey, clientReceiptID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ListRecent merges receipts the caller owns with receipts they ever joined,
// deduplicated by receipt id, newest activity first.
func (s *ReceiptService) ListRecent(caller identity.Identity, limit int, includeArchived bool) ([]dto.RecentReceipt, error) {
	key, err := caller.ParticipantKey()
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	var owned []models.Receipt
	if err := s.db.Where("owner_key = ?", key).Find(&owned).Error; err != nil {
		return nil, err
	}

	var memberships []models.ReceiptParticipant
	if err := s.db.Where("participant_key = ?", key).Find(&memberships).Error; err != nil {
		return nil, err
	}

	joinedAt := make(map[uuid.UUID]time.Time, len(memberships))
	joinedIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		joinedAt[m.ReceiptID] = m.JoinedAt
		joinedIDs = append(joinedIDs, m.ReceiptID)
	}

	var joined []models.Receipt
	if len(joinedIDs) > 0 {
		if err := s.db.Where("id IN ?", joinedIDs).Find(&joined).Error; err != nil {
			return nil, err
		}
	}

	seen := make(map[uuid.UUID]bool)
	recent := make([]dto.RecentReceipt, 0, len(owned)+len(joined))
	appendReceipt := func(r models.Receipt, isOwner bool) {
		if seen[r.ID] {
			return
		}
		seen[r.ID] = true
		if !r.IsActive && !includeArchived {
			return
		}

		last := r.CreatedAt
		if j, ok := joinedAt[r.ID]; ok && j.After(last) {
			last = j
		}
		entry := dto.RecentReceipt{
			ID:             r.ID,
			ShareCode:      r.ShareCode,
			IsActive:       r.IsActive,
			IsOwner:        isOwner,
			CreatedAt:      r.CreatedAt,
			LastActivityAt: last,
		}
		if isOwner {
			entry.ClientReceiptID = r.ClientReceiptID
		}
		recent = append(recent, entry)
	}
	for _, r := range owned {
		appendReceipt(r, true)
	}
	for _, r := range joined {
		appendReceipt(r, r.OwnerKey == key)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastActivityAt.After(recent[j].LastActivityAt)
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// replaceItems is the wholesale item replacement: existing items AND their
// claims are deleted together before the normalized incoming list is
// inserted. A stale claim against a renumbered item would silently
// misattribute ownership, so claims never outlive an item change.
func replaceItems(tx *gorm.DB, receiptID uuid.UUID, candidates []dto.ItemCandidate) error {
	if err := tx.Where("receipt_id = ?", receiptID).Delete(&models.ReceiptClaim{}).Error; err != nil {
		return err
	}
	if err := tx.Where("receipt_id = ?", receiptID).Delete(&models.ReceiptItem{}).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	items := make([]models.ReceiptItem, 0, len(candidates))
	for i, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}

		quantity := c.Quantity
		if quantity < 1 {
			quantity = 1
		}
		sortOrder := i
		if c.SortOrder != nil && *c.SortOrder >= 0 {
			sortOrder = *c.SortOrder
		}

		item := models.ReceiptItem{
			ID:        uuid.New(),
			ReceiptID: receiptID,
			Name:      name,
			Quantity:  quantity,
			Price:     c.Price,
			SortOrder: sortOrder,
			CreatedAt: now,
		}
		if id := strings.TrimSpace(c.ClientItemID); id != "" {
			item.ClientItemID = &id
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// findActiveReceipt validates the share code shape before querying and treats
// archived receipts as absent.
func findActiveReceipt(db *gorm.DB, code string) (*models.Receipt, error) {
	if !sharecode.Valid(code) {
		return nil, ErrInvalidShareCode
	}

	var receipt models.Receipt
	err := db.Where("share_code = ?", code).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	if !receipt.IsActive {
		return nil, ErrReceiptNotFound
	}
	return &receipt, nil
}

// itemsForReceipt loads the normalized items in display order, falling back
// to the legacy payload for receipts never re-submitted in the current
// format. Legacy decode failures degrade to an empty list.
func itemsForReceipt(db *gorm.DB, receipt *models.Receipt) ([]models.ReceiptItem, error) {
	var items []models.ReceiptItem
	if err := db.Where("receipt_id = ?", receipt.ID).Order("sort_order ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = legacyItemsOrEmpty(receipt)
	}
	return items, nil
}

func receiptView(receipt *models.Receipt, items []models.ReceiptItem, viewer identity.Identity) dto.ReceiptView {
	view := dto.ReceiptView{
		ID:        receipt.ID,
		ShareCode: receipt.ShareCode,
		IsActive:  receipt.IsActive,
		CanManage: ownsReceipt(viewer, receipt),
		CreatedAt: receipt.CreatedAt,
		Items:     make([]dto.ItemView, 0, len(items)),
	}
	for i := range items {
		item := &items[i]
		view.Items = append(view.Items, dto.ItemView{
			ItemKey:           item.Key(),
			Name:              item.Name,
			Quantity:          item.Quantity,
			Price:             item.Price,
			SortOrder:         item.SortOrder,
			RemainingQuantity: item.Quantity,
		})
	}
	return view
}
