package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the billing profile for an authenticated identity. CreatedAt anchors
// the rolling monthly usage window; the stored window is authoritative only
// while it matches the freshly computed one for "now".
type User struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TokenIdentifier       string     `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Subject               string     `gorm:"size:255" json:"-"`
	Issuer                string     `gorm:"size:255" json:"-"`
	Name                  string     `gorm:"size:120" json:"name"`
	Email                 string     `gorm:"size:255" json:"email"`
	FreeBillsUsedInPeriod int        `gorm:"default:0" json:"free_bills_used_in_period"`
	CurrentPeriodStartAt  *time.Time `json:"current_period_start_at,omitempty"`
	CurrentPeriodEndAt    *time.Time `json:"current_period_end_at,omitempty"`
	BillCreditsBalance    int        `gorm:"default:0" json:"bill_credits_balance"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
