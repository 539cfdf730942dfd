package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dailyBalanceHandler = "daily-balance"

// ProcessLedgerEvent is the Pub/Sub consumer: it folds published ledger
// events into the per-account daily balance table. Only events that actually
// moved account money produce rows:
//
//   - IC collections with an account named credit the account here (the
//     synchronous path records the collection but defers the account credit)
//   - PO executions and AA adjustments already moved the header balance in
//     their posting transaction, so only the day row is written
//   - EP direct payments never touch an account and AL alerts carry no money
//
// The idempotency key makes Pub/Sub redelivery harmless.
func ProcessLedgerEvent(ctx context.Context, event config.LedgerEvent) error {

	messageId := fmt.Sprintf("ledger-event-%d", event.ID)
	db := config.GetDB()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, event.FirmId, dailyBalanceHandler, messageId)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}

		if err := applyLedgerEvent(tx, event); err != nil {
			_ = MarkIdempotencyFailed(tx, event.FirmId, dailyBalanceHandler, messageId, err)
			return err
		}

		now := time.Now().UTC()
		err = tx.Model(&models.LedgerEventRecord{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"is_processed": true,
				"processed_at": &now,
			}).Error
		if err != nil {
			return err
		}

		return MarkIdempotencySucceeded(tx, event.FirmId, dailyBalanceHandler, messageId)
	})
}

func applyLedgerEvent(tx *gorm.DB, event config.LedgerEvent) error {
	switch models.LedgerReferenceType(event.ReferenceType) {

	case models.LedgerRefIncomeCollection:
		var record models.PaymentRecord
		if err := json.Unmarshal(event.NewObj, &record); err != nil {
			return err
		}
		if record.AccountId <= 0 {
			return nil
		}
		err := models.UpsertDailyBalance(tx, event.FirmId, record.AccountId, record.PaymentDate, decimal.Zero, record.Amount)
		if err != nil {
			return err
		}
		return tx.Model(&models.FinancialAccount{}).
			Where("firm_id = ? AND id = ?", event.FirmId, record.AccountId).
			Update("current_balance", gorm.Expr("current_balance + ?", record.Amount)).Error

	case models.LedgerRefPaymentOrder:
		var order models.PaymentOrder
		if err := json.Unmarshal(event.NewObj, &order); err != nil {
			return err
		}
		date := event.EventDateTime
		if order.PaymentDate != nil {
			date = *order.PaymentDate
		}
		// Header balance was debited in the execution transaction.
		return models.UpsertDailyBalance(tx, event.FirmId, order.AccountId, date, order.TotalAmount, decimal.Zero)

	case models.LedgerRefAccountAdjustment:
		var newAccount, oldAccount models.FinancialAccount
		if err := json.Unmarshal(event.NewObj, &newAccount); err != nil {
			return err
		}
		if err := json.Unmarshal(event.OldObj, &oldAccount); err != nil {
			return err
		}
		delta := newAccount.CurrentBalance.Sub(oldAccount.CurrentBalance)
		if delta.IsNegative() {
			return models.UpsertDailyBalance(tx, event.FirmId, newAccount.ID, event.EventDateTime, delta.Abs(), decimal.Zero)
		}
		return models.UpsertDailyBalance(tx, event.FirmId, newAccount.ID, event.EventDateTime, decimal.Zero, delta)

	default:
		// EP, AL: nothing to fold.
		return nil
	}
}
