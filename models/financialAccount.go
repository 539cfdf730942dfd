package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialAccount holds firm money: caja, banco or tarjeta. CurrentBalance
// only moves through payment order execution and manual adjustments; direct
// document payments record the account but never debit it.
type FinancialAccount struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	FirmId         string               `gorm:"index;not null" json:"firm_id"`
	AccountType    FinancialAccountType `gorm:"type:enum('cash','bank','card');default:'cash';size:12;not null" json:"account_type" binding:"required"`
	AccountName    string               `gorm:"index;size:100;not null" json:"account_name" binding:"required"`
	CurrencyId     int                  `gorm:"not null" json:"currency_id" binding:"required"`
	AccountNumber  string               `gorm:"size:50" json:"account_number"`
	BankName       string               `gorm:"size:100" json:"bank_name"`
	InitialBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"initial_balance"`
	CurrentBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	Description    string               `gorm:"type:text" json:"description"`
	IsActive       *bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFinancialAccount struct {
	AccountType    FinancialAccountType `json:"account_type" binding:"required,oneof=cash bank card"`
	AccountName    string               `json:"account_name" binding:"required"`
	CurrencyId     int                  `json:"currency_id" binding:"required"`
	AccountNumber  string               `json:"account_number"`
	BankName       string               `json:"bank_name"`
	InitialBalance decimal.Decimal      `json:"initial_balance"`
	Description    string               `json:"description"`
}

// NewAccountAdjustment is a manual balance correction; always needs a reason.
type NewAccountAdjustment struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

func (a *FinancialAccount) Reference() string {
	return fmt.Sprintf("account %s (id=%d)", a.AccountName, a.ID)
}

// validate input for both create & update. (id = 0 for create)
func (input *NewFinancialAccount) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[FinancialAccount](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[FinancialAccount](ctx, firmId, "account_name", input.AccountName, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Currency](ctx, firmId, input.CurrencyId); err != nil {
		return errors.New("currency not found")
	}
	return nil
}

func CreateFinancialAccount(ctx context.Context, input *NewFinancialAccount) (*FinancialAccount, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	initial := Round2(input.InitialBalance)
	account := FinancialAccount{
		FirmId:         firmId,
		AccountType:    input.AccountType,
		AccountName:    input.AccountName,
		CurrencyId:     input.CurrencyId,
		AccountNumber:  input.AccountNumber,
		BankName:       input.BankName,
		InitialBalance: initial,
		CurrentBalance: initial,
		Description:    input.Description,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateFinancialAccount(ctx context.Context, id int, input *NewFinancialAccount) (*FinancialAccount, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[FinancialAccount](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"AccountType":   input.AccountType,
		"AccountName":   input.AccountName,
		"CurrencyId":    input.CurrencyId,
		"AccountNumber": input.AccountNumber,
		"BankName":      input.BankName,
		"Description":   input.Description,
	}

	// InitialBalance is frozen once money has moved through the account;
	// after that, corrections go through AdjustFinancialAccount so they leave
	// an audit trail.
	hasMovements, err := accountHasMovements(ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if !hasMovements {
		initial := Round2(input.InitialBalance)
		delta := initial.Sub(account.InitialBalance)
		updates["InitialBalance"] = initial
		updates["CurrentBalance"] = Round2(account.CurrentBalance.Add(delta))
	} else if !Round2(input.InitialBalance).Equal(account.InitialBalance) {
		return nil, errors.New("initial balance cannot change once the account has movements")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func accountHasMovements(ctx context.Context, firmId string, accountId int) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&PaymentRecord{}).
		Where("firm_id = ? AND account_id = ?", firmId, accountId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func GetFinancialAccount(ctx context.Context, id int) (*FinancialAccount, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[FinancialAccount](ctx, firmId, id)
}

func ListFinancialAccounts(ctx context.Context) ([]*FinancialAccount, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[FinancialAccount](ctx, firmId)
}

func DeactivateFinancialAccount(ctx context.Context, id int) (*FinancialAccount, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	account, err := utils.FetchModel[FinancialAccount](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Update("IsActive", utils.NewFalse()).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// AdjustFinancialAccount applies a signed manual correction. Negative amounts
// may not take the balance below zero.
func AdjustFinancialAccount(ctx context.Context, id int, input *NewAccountAdjustment) (*FinancialAccount, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if input.Amount.IsZero() {
		return nil, errInvalidAmount("account adjustment", input.Amount)
	}
	if input.Reason == "" {
		return nil, errMissingReason("account adjustment")
	}

	account, err := utils.FetchModel[FinancialAccount](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	before := *account
	amount := Round2(input.Amount)
	newBalance := Round2(account.CurrentBalance.Add(amount))
	if newBalance.IsNegative() {
		return nil, errInsufficientFunds(account.Reference(), amount.Abs(), account.CurrentBalance)
	}

	now := time.Now()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(account).Update("CurrentBalance", newBalance).Error; err != nil {
			return err
		}
		account.CurrentBalance = newBalance
		if err := createHistory(tx, "Adjust", account.ID, "financial_accounts", before, account, input.Reason); err != nil {
			return err
		}
		return PublishToLedger(ctx, tx, firmId, now, account.ID, LedgerRefAccountAdjustment, account, &before, LedgerEventActionUpdate)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
