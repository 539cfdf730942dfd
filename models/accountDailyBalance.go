package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinancialAccountDailyBalance is the per-day movement summary maintained by
// the ledger event consumer. Debit is money out (payments), credit money in
// (collections, positive adjustments).
type FinancialAccountDailyBalance struct {
	FirmId          string            `gorm:"primaryKey;size:64;index:idx_fadb_firm_date,priority:1" json:"firm_id"`
	AccountId       int               `gorm:"primaryKey" json:"account_id"`
	Account         *FinancialAccount `gorm:"foreignKey:AccountId" json:"account"`
	TransactionDate time.Time         `gorm:"primaryKey;index:idx_fadb_firm_date,priority:2" json:"transaction_date"`
	Debit           decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit          decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"credit"`
	RunningBalance  decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"running_balance"`
}

// UpsertDailyBalance accumulates one movement into the day row. Running
// balances are filled in afterwards by RebuildDailyBalances or incrementally
// by the consumer.
func UpsertDailyBalance(tx *gorm.DB, firmId string, accountId int, date time.Time, debit, credit decimal.Decimal) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	row := FinancialAccountDailyBalance{
		FirmId:          firmId,
		AccountId:       accountId,
		TransactionDate: day,
		Debit:           Round2(debit),
		Credit:          Round2(credit),
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firm_id"}, {Name: "account_id"}, {Name: "transaction_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"debit":  gorm.Expr("debit + VALUES(debit)"),
			"credit": gorm.Expr("credit + VALUES(credit)"),
		}),
	}).Create(&row).Error
}

// RebuildDailyBalances recomputes running balances for one account from its
// initial balance forward. Used by the rebuild job and after backdated
// corrections.
func RebuildDailyBalances(ctx context.Context, firmId string, accountId int) error {
	db := config.GetDB()
	account, err := utils.FetchModel[FinancialAccount](ctx, firmId, accountId)
	if err != nil {
		return err
	}

	var rows []*FinancialAccountDailyBalance
	err = db.WithContext(ctx).
		Where("firm_id = ? AND account_id = ?", firmId, accountId).
		Order("transaction_date asc").
		Find(&rows).Error
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		running := account.InitialBalance
		for _, row := range rows {
			running = Round2(running.Add(row.Credit).Sub(row.Debit))
			err := tx.Model(&FinancialAccountDailyBalance{}).
				Where("firm_id = ? AND account_id = ? AND transaction_date = ?", firmId, accountId, row.TransactionDate).
				Update("running_balance", running).Error
			if err != nil {
				return err
			}
		}
		// The account header must agree with the last day row.
		return tx.Model(&FinancialAccount{}).
			Where("firm_id = ? AND id = ?", firmId, accountId).
			Update("current_balance", running).Error
	})
}

func ListDailyBalances(ctx context.Context, accountId int, from, to time.Time) ([]*FinancialAccountDailyBalance, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var rows []*FinancialAccountDailyBalance
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("firm_id = ? AND account_id = ? AND transaction_date BETWEEN ? AND ?", firmId, accountId, from, to).
		Order("transaction_date asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
