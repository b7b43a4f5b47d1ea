package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapsplit/snapsplit-backend/internal/billing"
	"github.com/snapsplit/snapsplit-backend/internal/config"
	"github.com/snapsplit/snapsplit-backend/internal/dto"
	"github.com/snapsplit/snapsplit-backend/internal/identity"
	"github.com/snapsplit/snapsplit-backend/internal/models"
	"gorm.io/gorm"
)

// creditProductPrefix encodes the credit count in the store product id,
// e.g. "bill_credits_10" grants 10 credits.
const creditProductPrefix = "bill_credits_"

// BillingService gates receipt creation on the per-period allowance and
// applies purchased-credit top-ups from store webhooks. The period math
// itself lives in the pure billing package; this service only loads, derives
// and replaces the stored state.
type BillingService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewBillingService(db *gorm.DB, cfg *config.Config) *BillingService {
	return &BillingService{db: db, cfg: cfg}
}

// UsageState recomputes the caller's live allowance state.
func (s *BillingService) UsageState(auth *identity.AuthIdentity, now time.Time) (billing.UsageState, int, error) {
	var state billing.UsageState
	if auth == nil || auth.TokenIdentifier == "" {
		return state, 0, identity.ErrAuthenticationRequired
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := ensureUser(tx, auth, now)
		if err != nil {
			return err
		}
		state = billing.DeriveUsageState(
			user.CreatedAt, user.CurrentPeriodStartAt, user.CurrentPeriodEndAt,
			user.FreeBillsUsedInPeriod, user.BillCreditsBalance, now)
		return nil
	})
	return state, s.cfg.FreeBillsPerPeriod, err
}

// consumeAllowanceTx spends one slot for a new receipt inside the caller's
// transaction, recompute-and-replace: the stored window is overwritten with
// the freshly derived one every time.
func (s *BillingService) consumeAllowanceTx(tx *gorm.DB, auth *identity.AuthIdentity, now time.Time) (billing.Source, error) {
	user, err := ensureUser(tx, auth, now)
	if err != nil {
		return billing.SourceNone, err
	}

	state := billing.DeriveUsageState(
		user.CreatedAt, user.CurrentPeriodStartAt, user.CurrentPeriodEndAt,
		user.FreeBillsUsedInPeriod, user.BillCreditsBalance, now)

	next, source := billing.Consume(state, s.cfg.FreeBillsPerPeriod)
	if source == billing.SourceNone {
		return source, nil
	}

	err = tx.Model(user).Updates(map[string]interface{}{
		"free_bills_used_in_period": next.FreeBillsUsed,
		"current_period_start_at":   next.Window.Start,
		"current_period_end_at":     next.Window.End,
		"bill_credits_balance":      next.BillCredits,
		"updated_at":                now,
	}).Error
	return source, err
}

// HandlePurchaseEvent grants bill credits for non-renewing purchases. The
// webhook app user id is the token identifier the client registered with the
// store SDK. Unknown event types and products are acknowledged and skipped.
func (s *BillingService) HandlePurchaseEvent(event *dto.RevenueCatEvent) error {
	if event.Type != "NON_RENEWING_PURCHASE" {
		return nil
	}
	if !strings.HasPrefix(event.ProductID, creditProductPrefix) {
		slog.Warn("unrecognized credit product", "product_id", event.ProductID)
		return nil
	}
	credits, err := strconv.Atoi(strings.TrimPrefix(event.ProductID, creditProductPrefix))
	if err != nil || credits <= 0 {
		return fmt.Errorf("bad credit count in product id %q", event.ProductID)
	}

	result := s.db.Model(&models.User{}).
		Where("token_identifier = ?", event.AppUserID).
		Update("bill_credits_balance", gorm.Expr("bill_credits_balance + ?", credits))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no user for app user id %q", event.AppUserID)
	}

	slog.Info("bill credits granted", "credits", credits, "transaction_id", event.TransactionID)
	return nil
}

// ensureUser provisions the billing profile on first contact; CreatedAt
// anchors the usage window from then on.
func ensureUser(tx *gorm.DB, auth *identity.AuthIdentity, now time.Time) (*models.User, error) {
	var user models.User
	err := tx.Where("token_identifier = ?", auth.TokenIdentifier).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:              uuid.New(),
		TokenIdentifier: auth.TokenIdentifier,
		Subject:         auth.Subject,
		Issuer:          auth.Issuer,
		Name:            auth.Name,
		Email:           auth.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
