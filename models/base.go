package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Documents default to raising the "approaching due" alert 5 days out.
const defaultAlertDays = 5

// Round2 is the single money-rounding rule of the ledger: half-up to 2
// decimals (decimal.Round rounds half away from zero, which is half-up for
// the positive amounts handled here). Every stored monetary value passes
// through it so installment splits and balances always reconcile exactly.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PublishToLedger implements the transactional outbox: the event record is
// written inside the caller's DB transaction but NOT published to Pub/Sub.
// Publishing is performed asynchronously by the outbox dispatcher after commit.
func PublishToLedger(ctx context.Context, db *gorm.DB, firmId string, eventDateTime time.Time, refId int, refType LedgerReferenceType, obj interface{}, oldObj interface{}, action LedgerEventAction) error {

	var objInByte []byte
	var oldObjInByte []byte
	var err error

	if action == LedgerEventActionCreate || action == LedgerEventActionUpdate {
		objInByte, err = json.Marshal(obj)
		if err != nil {
			return err
		}
	}
	if action == LedgerEventActionUpdate || action == LedgerEventActionDelete {
		oldObjInByte, err = json.Marshal(oldObj)
		if err != nil {
			return err
		}
	}

	record := LedgerEventRecord{
		FirmId:        firmId,
		EventDateTime: eventDateTime,
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		NewObj:        objInByte,
		OldObj:        oldObjInByte,
		IsProcessed:   false,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	err = db.Create(&record).Error
	if err != nil {
		return err
	}
	return nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// isDuplicateKeyError detects MySQL 1062 so unique-index races can be treated
// as "someone else got there first" instead of failures.
func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// daysUntil counts whole calendar days from today to due (negative when past).
func daysUntil(today time.Time, due time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}
