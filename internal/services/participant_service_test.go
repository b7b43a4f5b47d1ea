package services

import (
	"testing"

	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestJoinIsUpsert(t *testing.T) {
	db := newTestDB(t)
	receipts := newReceiptService(db)
	participants := NewParticipantService(db)
	code := seedReceipt(t, receipts, 5)
	ann := authCaller("a", "Ann")

	first, err := participants.Join(ann, code)
	require.NoError(t, err)

	second, err := participants.Join(ann, code)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.JoinedAt.Equal(first.JoinedAt))

	var count int64
	require.NoError(t, db.Model(&models.ReceiptParticipant{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeclarePaymentValidatesInput(t *testing.T) {
	db := newTestDB(t)
	receipts := newReceiptService(db)
	participants := NewParticipantService(db)
	code := seedReceipt(t, receipts, 5)
	ann := authCaller("a", "Ann")

	_, err := participants.DeclarePayment(ann, code, "", 10)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = participants.DeclarePayment(ann, code, "venmo", 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = participants.DeclarePayment(ann, code, "venmo", -5)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeclarePaymentSetsPending(t *testing.T) {
	db := newTestDB(t)
	receipts := newReceiptService(db)
	participants := NewParticipantService(db)
	code := seedReceipt(t, receipts, 5)

	p, err := participants.DeclarePayment(authCaller("a", "Ann"), code, "venmo", 12.50)
	require.NoError(t, err)
	require.NotNil(t, p.PaymentStatus)
	require.Equal(t, models.PaymentStatusPending, *p.PaymentStatus)
	require.Equal(t, "venmo", *p.PaymentMethod)
	require.Equal(t, 12.50, *p.PaymentAmount)
}

func TestConfirmPaymentOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	receipts := newReceiptService(db)
	participants := NewParticipantService(db)
	code := seedReceipt(t, receipts, 5)

	ann := authCaller("a", "Ann")
	p, err := participants.DeclarePayment(ann, code, "venmo", 12.50)
	require.NoError(t, err)

	err = participants.ConfirmPayment(ann, code, p.ParticipantKey)
	require.ErrorIs(t, err, ErrNotOwner)

	err = participants.ConfirmPayment(guestCaller(testGuestID), code, p.ParticipantKey)
	require.ErrorIs(t, err, ErrNotOwner)

	owner := authCaller("owner", "Owner")
	require.NoError(t, participants.ConfirmPayment(owner, code, p.ParticipantKey))

	var row models.ReceiptParticipant
	require.NoError(t, db.Where("participant_key = ?", p.ParticipantKey).First(&row).Error)
	require.Equal(t, models.PaymentStatusConfirmed, *row.PaymentStatus)

	// Already confirmed, so there is no pending row left to flip.
	err = participants.ConfirmPayment(owner, code, p.ParticipantKey)
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestConfirmPaymentUnknownParticipant(t *testing.T) {
	db := newTestDB(t)
	receipts := newReceiptService(db)
	participants := NewParticipantService(db)
	code := seedReceipt(t, receipts, 5)

	err := participants.ConfirmPayment(authCaller("owner", "Owner"), code, identity.GuestKeyPrefix+testGuestID)
	require.ErrorIs(t, err, ErrParticipantNotFound)
}
