package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Receipt is one shared bill. Ownership is either an authenticated identity
// (token identifier triple) or a guest device id, never both.
type Receipt struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientReceiptID      string    `gorm:"size:100;not null;uniqueIndex:idx_receipts_owner_client" json:"client_receipt_id"`
	OwnerKey             string    `gorm:"size:300;not null;uniqueIndex:idx_receipts_owner_client;index" json:"-"`
	OwnerTokenIdentifier *string   `gorm:"size:255;index" json:"-"`
	OwnerSubject         *string   `gorm:"size:255" json:"-"`
	OwnerIssuer          *string   `gorm:"size:255" json:"-"`
	GuestDeviceID        *string   `gorm:"size:36;index" json:"-"`
	ShareCode            string    `gorm:"size:6;not null;uniqueIndex" json:"share_code"`
	IsActive             bool      `gorm:"default:true" json:"is_active"`
	LegacyPayload        *string   `gorm:"type:text" json:"-"`
	CreatedAt            time.Time `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ReceiptItem is one line item. Items are owned by their receipt and replaced
// wholesale on every update.
type ReceiptItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID    uuid.UUID `gorm:"type:uuid;not null;index" json:"receipt_id"`
	ClientItemID *string   `gorm:"size:100" json:"client_item_id,omitempty"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Quantity     int       `gorm:"not null;default:1" json:"quantity"`
	Price        *float64  `json:"price,omitempty"`
	SortOrder    int       `gorm:"not null" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Key returns the stable identifier the claim ledger matches on: the client
// item id when present, else a positional fallback.
func (i *ReceiptItem) Key() string {
	if i.ClientItemID != nil && *i.ClientItemID != "" {
		return *i.ClientItemID
	}
	return fmt.Sprintf("sort:%d", i.SortOrder)
}

// ReceiptClaim records how much of one item a participant has claimed.
// Invariant: per (receipt_id, item_key) the quantities never sum past the
// item's quantity. Rows are deleted, not zeroed, when a claim reaches zero.
type ReceiptClaim struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_claims_receipt_item_participant;index:idx_claims_receipt_item" json:"receipt_id"`
	ItemKey        string    `gorm:"size:120;not null;uniqueIndex:idx_claims_receipt_item_participant;index:idx_claims_receipt_item" json:"item_key"`
	ParticipantKey string    `gorm:"size:300;not null;uniqueIndex:idx_claims_receipt_item_participant;index" json:"participant_key"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReceiptParticipant is one (receipt, identity) pairing: at most one row per
// participant key on a receipt.
type ReceiptParticipant struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_participants_receipt_key" json:"receipt_id"`
	ParticipantKey   string     `gorm:"size:300;not null;uniqueIndex:idx_participants_receipt_key;index" json:"participant_key"`
	TokenIdentifier  *string    `gorm:"size:255;index" json:"-"`
	GuestDeviceID    *string    `gorm:"size:36;index" json:"-"`
	DisplayName      string     `gorm:"size:120" json:"display_name"`
	JoinedAt         time.Time  `gorm:"not null;index" json:"joined_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PaymentStatus    *string    `gorm:"size:20" json:"payment_status,omitempty"`
	PaymentMethod    *string    `gorm:"size:50" json:"payment_method,omitempty"`
	PaymentAmount    *float64   `json:"payment_amount,omitempty"`
	PaymentUpdatedAt *time.Time `json:"payment_updated_at,omitempty"`
}

// Payment status lifecycle.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
)
