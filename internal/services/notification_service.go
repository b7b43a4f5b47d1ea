package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/snapsplit/snapsplit-backend/internal/models"
	"gorm.io/gorm"
)

// PushNotification is the tuple handed to the delivery collaborator. This
// service only decides whether and to whom a push should be attempted;
// transport, signing and delivery live elsewhere.
type PushNotification struct {
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	Payload map[string]interface{} `json:"payload"`
}

// Notifier is the outbound boundary to push delivery.
type Notifier interface {
	Send(n PushNotification) error
}

// LogNotifier is the default Notifier: it records the tuple and lets an
// external worker pick it up from the log stream.
type LogNotifier struct{}

func (LogNotifier) Send(n PushNotification) error {
	slog.Info("push notification queued", "title", n.Title, "body", n.Body, "payload", n.Payload)
	return nil
}

// NotificationService gates payment-declared pushes: by the time the push is
// about to go out the payment may have been confirmed, the method changed or
// the receipt archived, and a stale push must not be attempted.
type NotificationService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewNotificationService(db *gorm.DB, notifier Notifier) *NotificationService {
	return &NotificationService{db: db, notifier: notifier}
}

// NotifyPaymentDeclared re-validates the declared payment and, when still
// eligible, hands the push tuple to the notifier. Returns whether a push was
// attempted; ineligibility is not an error.
func (s *NotificationService) NotifyPaymentDeclared(code, participantKey, displayName string, amount float64, method string) (bool, error) {
	receipt, err := findActiveReceipt(s.db, code)
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) || errors.Is(err, ErrInvalidShareCode) {
			return false, nil
		}
		return false, err
	}

	var participant models.ReceiptParticipant
	if err := s.db.Where("receipt_id = ? AND participant_key = ?", receipt.ID, participantKey).
		First(&participant).Error; err != nil {
		return false, nil
	}

	if participant.PaymentStatus == nil || *participant.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	if participant.PaymentMethod == nil || *participant.PaymentMethod != method {
		// The participant changed their mind while this push was queued.
		return false, nil
	}

	if displayName == "" {
		displayName = participant.DisplayName
	}

	n := PushNotification{
		Title: fmt.Sprintf("%s wants to settle up", displayName),
		Body:  fmt.Sprintf("$%.2f via %s", amount, method),
		Payload: map[string]interface{}{
			"type":            "payment_declared",
			"receipt_code":    code,
			"participant_key": participantKey,
			"amount":          amount,
			"method":          method,
		},
	}
	if err := s.notifier.Send(n); err != nil {
		return false, err
	}
	return true, nil
}
