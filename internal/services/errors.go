package services

import "errors"

var (
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidShareCode    = errors.New("invalid share code")
	ErrInvalidGuestID      = errors.New("invalid guest device id")
	ErrInvalidInput        = errors.New("invalid input")
	ErrAllowanceExhausted  = errors.New("receipt allowance exhausted")
	ErrNotOwner            = errors.New("caller does not own this receipt")
)
