package dto

import (
	"time"

	"github.com/google/uuid"
)

// ItemCandidate is one line-item candidate as handed over by the scanning
// step (or typed in manually): already layout-normalized, no text parsing
// happens here.
type ItemCandidate struct {
	ClientItemID string   `json:"client_item_id,omitempty"`
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	Price        *float64 `json:"price,omitempty"`
	SortOrder    *int     `json:"sort_order,omitempty"`
}

type CreateReceiptRequest struct {
	ClientReceiptID string          `json:"client_receipt_id"`
	Items           []ItemCandidate `json:"items"`
}

type CreateReceiptResponse struct {
	ReceiptID       uuid.UUID `json:"receipt_id"`
	ShareCode       string    `json:"share_code"`
	Created         bool      `json:"created"`
	AllowanceSource string    `json:"allowance_source,omitempty"`
}

// ItemView is a line item annotated for the live projection.
type ItemView struct {
	ItemKey               string   `json:"item_key"`
	Name                  string   `json:"name"`
	Quantity              int      `json:"quantity"`
	Price                 *float64 `json:"price,omitempty"`
	SortOrder             int      `json:"sort_order"`
	ClaimedQuantity       int      `json:"claimed_quantity"`
	ViewerClaimedQuantity int      `json:"viewer_claimed_quantity"`
	RemainingQuantity     int      `json:"remaining_quantity"`
}

type ReceiptView struct {
	ID        uuid.UUID  `json:"id"`
	ShareCode string     `json:"share_code"`
	IsActive  bool       `json:"is_active"`
	CanManage bool       `json:"can_manage"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []ItemView `json:"items"`
}

type ParticipantView struct {
	ParticipantKey string     `json:"participant_key"`
	DisplayName    string     `json:"display_name"`
	IsViewer       bool       `json:"is_viewer"`
	JoinedAt       time.Time  `json:"joined_at"`
	PaymentStatus  *string    `json:"payment_status,omitempty"`
	PaymentMethod  *string    `json:"payment_method,omitempty"`
	PaymentAmount  *float64   `json:"payment_amount,omitempty"`
	PaymentAt      *time.Time `json:"payment_at,omitempty"`
}

type LiveView struct {
	Receipt      ReceiptView       `json:"receipt"`
	Participants []ParticipantView `json:"participants"`
}

type RecentReceipt struct {
	ID              uuid.UUID `json:"id"`
	ShareCode       string    `json:"share_code"`
	ClientReceiptID string    `json:"client_receipt_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	IsOwner         bool      `json:"is_owner"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}
