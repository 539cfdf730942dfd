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

// Income is a client invoice (factura emitida). Same lifecycle as Expense but
// the accumulated side is collections, not payments.
type Income struct {
	ID            int              `gorm:"primary_key" json:"id"`
	FirmId        string           `gorm:"index;not null" json:"firm_id" binding:"required"`
	ClientId      int              `gorm:"index;not null" json:"client_id" binding:"required"`
	RemittanceId  int              `gorm:"index;default:null" json:"remittance_id"`
	InvoiceSeries string           `gorm:"size:10;not null" json:"invoice_series"`
	InvoiceNumber string           `gorm:"size:50;not null" json:"invoice_number" binding:"required"`
	SequenceNo    decimal.Decimal  `gorm:"type:decimal(15);not null" json:"sequence_no"`
	IssueDate     time.Time        `gorm:"not null" json:"issue_date" binding:"required"`
	DueDate       *time.Time       `gorm:"index;default:null" json:"due_date"`
	PaymentTerms  PaymentTermsCode `gorm:"size:20;default:null" json:"payment_terms"`
	AlertDays     int              `gorm:"default:5" json:"alert_days"`
	CurrencyId    int              `gorm:"not null" json:"currency_id" binding:"required"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CollectedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"collected_amount"`
	Balance       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CurrentStatus DocumentStatus   `gorm:"type:enum('Draft','Registered','Confirmed','Partial Paid','Paid','Cancelled');default:Draft" json:"current_status"`
	CancelReason  string           `gorm:"size:255;default:null" json:"cancel_reason"`
	Notes         string           `gorm:"type:text;default:null" json:"notes"`
	Documents     []*Document      `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIncome struct {
	ClientId      int              `json:"client_id" binding:"required"`
	RemittanceId  int              `json:"remittance_id"`
	InvoiceSeries string           `json:"invoice_series"`
	InvoiceNumber string           `json:"invoice_number" binding:"required"`
	IssueDate     time.Time        `json:"issue_date" binding:"required"`
	DueDate       *time.Time       `json:"due_date"`
	PaymentTerms  PaymentTermsCode `json:"payment_terms"`
	AlertDays     int              `json:"alert_days"`
	CurrencyId    int              `json:"currency_id" binding:"required"`
	TotalAmount   decimal.Decimal  `json:"total_amount" binding:"required"`
	Notes         string           `json:"notes"`
	Documents     []*NewDocument   `json:"documents"`
}

func (i *Income) Reference() string {
	return fmt.Sprintf("income %s-%s (id=%d)", i.InvoiceSeries, i.InvoiceNumber, i.ID)
}

// ApplyCollection mutates the in-memory document only; persistence happens in
// the caller's transaction.
func (i *Income) ApplyCollection(amount decimal.Decimal) error {
	status, collected, balance, err := applyDocumentPayment(i.Reference(), i.CurrentStatus, i.TotalAmount, i.CollectedAmount, amount)
	if err != nil {
		return err
	}
	i.CurrentStatus = status
	i.CollectedAmount = collected
	i.Balance = balance
	return nil
}

func (i *Income) Confirm() error {
	status, err := confirmDocument(i.Reference(), i.CurrentStatus)
	if err != nil {
		return err
	}
	i.CurrentStatus = status
	return nil
}

func (i *Income) Cancel(reason string) error {
	status, err := cancelDocument(i.Reference(), i.CurrentStatus, reason)
	if err != nil {
		return err
	}
	i.CurrentStatus = status
	i.CancelReason = reason
	return nil
}

func (input *NewIncome) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Income](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return errors.New("client not found")
	}
	if err := utils.ValidateResourceId[Currency](ctx, firmId, input.CurrencyId); err != nil {
		return errors.New("currency not found")
	}
	if input.RemittanceId > 0 {
		if err := utils.ValidateResourceId[Remittance](ctx, firmId, input.RemittanceId); err != nil {
			return errors.New("remittance not found")
		}
	}
	if !input.TotalAmount.IsPositive() {
		return errInvalidAmount("income "+input.InvoiceSeries+"-"+input.InvoiceNumber, input.TotalAmount)
	}
	if input.PaymentTerms != "" {
		if _, ok := ParsePaymentTermsCode(string(input.PaymentTerms)); !ok {
			return errors.New("unknown payment terms code")
		}
	}
	return nil
}

func CreateIncome(ctx context.Context, input *NewIncome) (*Income, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	dueDate := input.DueDate
	if dueDate == nil && input.PaymentTerms != "" {
		dueDate = PaymentTermsDueDate(input.PaymentTerms, input.IssueDate)
	}

	alertDays := input.AlertDays
	if alertDays <= 0 {
		alertDays = defaultAlertDays
	}

	documents, err := mapNewDocuments(input.Documents, "incomes")
	if err != nil {
		return nil, err
	}

	total := Round2(input.TotalAmount)
	income := Income{
		FirmId:          firmId,
		ClientId:        input.ClientId,
		RemittanceId:    input.RemittanceId,
		InvoiceSeries:   input.InvoiceSeries,
		InvoiceNumber:   input.InvoiceNumber,
		IssueDate:       input.IssueDate,
		DueDate:         dueDate,
		PaymentTerms:    input.PaymentTerms,
		AlertDays:       alertDays,
		CurrencyId:      input.CurrencyId,
		TotalAmount:     total,
		CollectedAmount: decimal.Zero,
		Balance:         total,
		CurrentStatus:   DocumentStatusDraft,
		Notes:           input.Notes,
		Documents:       documents,
	}

	seqNo, err := utils.GetSequence[Income](ctx, firmId)
	if err != nil {
		return nil, err
	}
	income.SequenceNo = decimal.NewFromInt(seqNo)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func UpdateIncome(ctx context.Context, id int, input *NewIncome) (*Income, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	income, err := utils.FetchModel[Income](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if !income.CurrentStatus.CanConfirm() {
		return nil, errInvalidStateTransition(income.Reference(), income.CurrentStatus, "edit")
	}

	dueDate := input.DueDate
	if dueDate == nil && input.PaymentTerms != "" {
		dueDate = PaymentTermsDueDate(input.PaymentTerms, input.IssueDate)
	}

	total := Round2(input.TotalAmount)
	db := config.GetDB()
	err = db.WithContext(ctx).Model(income).Updates(map[string]interface{}{
		"ClientId":      input.ClientId,
		"RemittanceId":  input.RemittanceId,
		"InvoiceSeries": input.InvoiceSeries,
		"InvoiceNumber": input.InvoiceNumber,
		"IssueDate":     input.IssueDate,
		"DueDate":       dueDate,
		"PaymentTerms":  input.PaymentTerms,
		"CurrencyId":    input.CurrencyId,
		"TotalAmount":   total,
		"Balance":       Round2(total.Sub(income.CollectedAmount)),
		"Notes":         input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return income, nil
}

func GetIncome(ctx context.Context, id int) (*Income, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Income](ctx, firmId, id, "Documents")
}

func ListIncomes(ctx context.Context) ([]*Income, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Income](ctx, firmId)
}

func DeleteIncome(ctx context.Context, id int) (*Income, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	income, err := utils.FetchModel[Income](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if income.CurrentStatus != DocumentStatusDraft && income.CurrentStatus != DocumentStatusRegistered {
		return nil, errInvalidStateTransition(income.Reference(), income.CurrentStatus, "delete")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(income).Error; err != nil {
		return nil, err
	}
	return income, nil
}

func ConfirmIncome(ctx context.Context, id int) (*Income, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	income, err := utils.FetchModel[Income](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err := income.Confirm(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(income).Update("CurrentStatus", income.CurrentStatus).Error; err != nil {
		return nil, err
	}
	return income, nil
}

func CancelIncome(ctx context.Context, id int, reason string) (*Income, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	income, err := utils.FetchModel[Income](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	before := *income
	if err := income.Cancel(reason); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(income).Updates(map[string]interface{}{
			"CurrentStatus": income.CurrentStatus,
			"CancelReason":  income.CancelReason,
		}).Error; err != nil {
			return err
		}
		// Cancelled documents carry no commitment; close their open alerts.
		if err := ResolveDocumentAlerts(ctx, tx, firmId, "incomes", income.ID); err != nil {
			return err
		}
		return createHistory(tx, "Cancel", income.ID, "incomes", before, income, "Income cancelled: "+reason)
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

// ApplyIncomeCollection posts one partial collection against a client invoice.
// When an account is named, the money is recorded but the account balance is
// only moved by the ledger consumer that maintains daily balances.
func ApplyIncomeCollection(ctx context.Context, id int, input *NewDocumentPayment) (*Income, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	income, err := utils.FetchModel[Income](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if input.AccountId > 0 {
		if err := utils.ValidateResourceId[FinancialAccount](ctx, firmId, input.AccountId); err != nil {
			return nil, errors.New("financial account not found")
		}
	}

	balanceBefore := income.Balance
	if err := income.ApplyCollection(input.Amount); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(income).Updates(map[string]interface{}{
			"CollectedAmount": income.CollectedAmount,
			"Balance":         income.Balance,
			"CurrentStatus":   income.CurrentStatus,
		}).Error; err != nil {
			return err
		}
		record := PaymentRecord{
			FirmId:          firmId,
			DocumentType:    DocumentKindIncome,
			DocumentId:      income.ID,
			PaymentDate:     input.PaymentDate,
			Amount:          Round2(input.Amount),
			Method:          input.Method,
			ReferenceNumber: input.ReferenceNumber,
			AccountId:       input.AccountId,
			BalanceBefore:   balanceBefore,
			BalanceAfter:    income.Balance,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// A fully collected invoice stops alerting.
		if income.CurrentStatus == DocumentStatusPaid {
			if err := ResolveDocumentAlerts(ctx, tx, firmId, "incomes", income.ID); err != nil {
				return err
			}
		}
		return PublishToLedger(ctx, tx, firmId, input.PaymentDate, record.ID, LedgerRefIncomeCollection, &record, nil, LedgerEventActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

// OutstandingIncomeBalance sums open balances across confirmed client invoices.
func OutstandingIncomeBalance(ctx context.Context, firmId string) (decimal.Decimal, error) {
	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&Income{}).
		Select("SUM(balance)").
		Where("firm_id = ? AND current_status NOT IN ?", firmId, []DocumentStatus{DocumentStatusCancelled, DocumentStatusDraft, DocumentStatusRegistered}).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
