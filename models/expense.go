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

// Expense is a provider invoice (factura recibida).
type Expense struct {
	ID              int              `gorm:"primary_key" json:"id"`
	FirmId          string           `gorm:"index;not null" json:"firm_id" binding:"required"`
	ProviderId      int              `gorm:"index;not null" json:"provider_id" binding:"required"`
	PurchaseOrderId int              `gorm:"index;default:null" json:"purchase_order_id"`
	InvoiceSeries   string           `gorm:"size:10;not null" json:"invoice_series"`
	InvoiceNumber   string           `gorm:"size:50;not null" json:"invoice_number" binding:"required"`
	SequenceNo      decimal.Decimal  `gorm:"type:decimal(15);not null" json:"sequence_no"`
	IssueDate       time.Time        `gorm:"not null" json:"issue_date" binding:"required"`
	DueDate         *time.Time       `gorm:"index;default:null" json:"due_date"`
	PaymentTerms    PaymentTermsCode `gorm:"size:20;default:null" json:"payment_terms"`
	AlertDays       int              `gorm:"default:5" json:"alert_days"`
	CurrencyId      int              `gorm:"not null" json:"currency_id" binding:"required"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Balance         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CurrentStatus   DocumentStatus   `gorm:"type:enum('Draft','Registered','Confirmed','Partial Paid','Paid','Cancelled');default:Draft" json:"current_status"`
	CancelReason    string           `gorm:"size:255;default:null" json:"cancel_reason"`
	Notes           string           `gorm:"type:text;default:null" json:"notes"`
	Documents       []*Document      `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	ProviderId      int              `json:"provider_id" binding:"required"`
	PurchaseOrderId int              `json:"purchase_order_id"`
	InvoiceSeries   string           `json:"invoice_series"`
	InvoiceNumber   string           `json:"invoice_number" binding:"required"`
	IssueDate       time.Time        `json:"issue_date" binding:"required"`
	DueDate         *time.Time       `json:"due_date"`
	PaymentTerms    PaymentTermsCode `json:"payment_terms"`
	AlertDays       int              `json:"alert_days"`
	CurrencyId      int              `json:"currency_id" binding:"required"`
	TotalAmount     decimal.Decimal  `json:"total_amount" binding:"required"`
	Notes           string           `json:"notes"`
	Documents       []*NewDocument   `json:"documents"`
}

// NewDocumentPayment is one partial payment/collection against a document.
type NewDocumentPayment struct {
	PaymentDate     time.Time       `json:"payment_date" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Method          PaymentMethod   `json:"method" binding:"required,oneof=transfer cash check card other"`
	ReferenceNumber string          `json:"reference_number"`
	AccountId       int             `json:"account_id"`
}

func (e *Expense) Reference() string {
	return fmt.Sprintf("expense %s-%s (id=%d)", e.InvoiceSeries, e.InvoiceNumber, e.ID)
}

func (e *Expense) recomputeBalance() {
	e.TotalAmount = Round2(e.TotalAmount)
	e.PaidAmount = Round2(e.PaidAmount)
	e.Balance = Round2(e.TotalAmount.Sub(e.PaidAmount))
}

// ApplyPayment mutates the in-memory document only; persistence happens in the
// caller's transaction.
func (e *Expense) ApplyPayment(amount decimal.Decimal) error {
	status, paid, balance, err := applyDocumentPayment(e.Reference(), e.CurrentStatus, e.TotalAmount, e.PaidAmount, amount)
	if err != nil {
		return err
	}
	e.CurrentStatus = status
	e.PaidAmount = paid
	e.Balance = balance
	return nil
}

func (e *Expense) Confirm() error {
	status, err := confirmDocument(e.Reference(), e.CurrentStatus)
	if err != nil {
		return err
	}
	e.CurrentStatus = status
	return nil
}

func (e *Expense) Cancel(reason string) error {
	status, err := cancelDocument(e.Reference(), e.CurrentStatus, reason)
	if err != nil {
		return err
	}
	e.CurrentStatus = status
	e.CancelReason = reason
	return nil
}

// validate input for both create & update. (id = 0 for create)
func (input *NewExpense) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Expense](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Provider](ctx, firmId, input.ProviderId); err != nil {
		return errors.New("provider not found")
	}
	if err := utils.ValidateResourceId[Currency](ctx, firmId, input.CurrencyId); err != nil {
		return errors.New("currency not found")
	}
	if input.PurchaseOrderId > 0 {
		if err := utils.ValidateResourceId[PurchaseOrder](ctx, firmId, input.PurchaseOrderId); err != nil {
			return errors.New("purchase order not found")
		}
	}
	if !input.TotalAmount.IsPositive() {
		return errInvalidAmount("expense "+input.InvoiceSeries+"-"+input.InvoiceNumber, input.TotalAmount)
	}
	if input.PaymentTerms != "" {
		if _, ok := ParsePaymentTermsCode(string(input.PaymentTerms)); !ok {
			return errors.New("unknown payment terms code")
		}
	}
	return nil
}

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {

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

	documents, err := mapNewDocuments(input.Documents, "expenses")
	if err != nil {
		return nil, err
	}

	expense := Expense{
		FirmId:          firmId,
		ProviderId:      input.ProviderId,
		PurchaseOrderId: input.PurchaseOrderId,
		InvoiceSeries:   input.InvoiceSeries,
		InvoiceNumber:   input.InvoiceNumber,
		IssueDate:       input.IssueDate,
		DueDate:         dueDate,
		PaymentTerms:    input.PaymentTerms,
		AlertDays:       alertDays,
		CurrencyId:      input.CurrencyId,
		TotalAmount:     Round2(input.TotalAmount),
		PaidAmount:      decimal.Zero,
		CurrentStatus:   DocumentStatusDraft,
		Notes:           input.Notes,
		Documents:       documents,
	}
	expense.recomputeBalance()

	seqNo, err := utils.GetSequence[Expense](ctx, firmId)
	if err != nil {
		return nil, err
	}
	expense.SequenceNo = decimal.NewFromInt(seqNo)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateExpense rewrites the editable fields of a draft. Confirmed documents
// are immutable except through the reconciliation operations below.
func UpdateExpense(ctx context.Context, id int, input *NewExpense) (*Expense, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	expense, err := utils.FetchModel[Expense](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if !expense.CurrentStatus.CanConfirm() {
		return nil, errInvalidStateTransition(expense.Reference(), expense.CurrentStatus, "edit")
	}

	dueDate := input.DueDate
	if dueDate == nil && input.PaymentTerms != "" {
		dueDate = PaymentTermsDueDate(input.PaymentTerms, input.IssueDate)
	}

	total := Round2(input.TotalAmount)
	db := config.GetDB()
	err = db.WithContext(ctx).Model(expense).Updates(map[string]interface{}{
		"ProviderId":      input.ProviderId,
		"PurchaseOrderId": input.PurchaseOrderId,
		"InvoiceSeries":   input.InvoiceSeries,
		"InvoiceNumber":   input.InvoiceNumber,
		"IssueDate":       input.IssueDate,
		"DueDate":         dueDate,
		"PaymentTerms":    input.PaymentTerms,
		"CurrencyId":      input.CurrencyId,
		"TotalAmount":     total,
		"Balance":         Round2(total.Sub(expense.PaidAmount)),
		"Notes":           input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func GetExpense(ctx context.Context, id int) (*Expense, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Expense](ctx, firmId, id, "Documents")
}

func ListExpenses(ctx context.Context) ([]*Expense, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Expense](ctx, firmId)
}

func DeleteExpense(ctx context.Context, id int) (*Expense, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	expense, err := utils.FetchModel[Expense](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	// Only drafts can be deleted; anything confirmed must be cancelled instead.
	if expense.CurrentStatus != DocumentStatusDraft && expense.CurrentStatus != DocumentStatusRegistered {
		return nil, errInvalidStateTransition(expense.Reference(), expense.CurrentStatus, "delete")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(expense).Error; err != nil {
		return nil, err
	}
	return expense, nil
}

func ConfirmExpense(ctx context.Context, id int) (*Expense, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	expense, err := utils.FetchModel[Expense](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err := expense.Confirm(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(expense).Update("CurrentStatus", expense.CurrentStatus).Error; err != nil {
		return nil, err
	}
	return expense, nil
}

func CancelExpense(ctx context.Context, id int, reason string) (*Expense, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	expense, err := utils.FetchModel[Expense](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	before := *expense
	if err := expense.Cancel(reason); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(expense).Updates(map[string]interface{}{
			"CurrentStatus": expense.CurrentStatus,
			"CancelReason":  expense.CancelReason,
		}).Error; err != nil {
			return err
		}
		// Cancelled documents carry no commitment; close their open alerts.
		if err := ResolveDocumentAlerts(ctx, tx, firmId, "expenses", expense.ID); err != nil {
			return err
		}
		return createHistory(tx, "Cancel", expense.ID, "expenses", before, expense, "Expense cancelled: "+reason)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// ApplyExpensePayment posts one partial payment: bumps paid_amount, recomputes
// balance, flips status and appends the immutable payment record, all in one
// transaction. The funding account balance is NOT touched here; only payment
// order execution and manual adjustments move account money.
func ApplyExpensePayment(ctx context.Context, id int, input *NewDocumentPayment) (*Expense, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	expense, err := utils.FetchModel[Expense](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if input.AccountId > 0 {
		if err := utils.ValidateResourceId[FinancialAccount](ctx, firmId, input.AccountId); err != nil {
			return nil, errors.New("financial account not found")
		}
	}

	balanceBefore := expense.Balance
	if err := expense.ApplyPayment(input.Amount); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(expense).Updates(map[string]interface{}{
			"PaidAmount":    expense.PaidAmount,
			"Balance":       expense.Balance,
			"CurrentStatus": expense.CurrentStatus,
		}).Error; err != nil {
			return err
		}
		record := PaymentRecord{
			FirmId:          firmId,
			DocumentType:    DocumentKindExpense,
			DocumentId:      expense.ID,
			PaymentDate:     input.PaymentDate,
			Amount:          Round2(input.Amount),
			Method:          input.Method,
			ReferenceNumber: input.ReferenceNumber,
			AccountId:       input.AccountId,
			BalanceBefore:   balanceBefore,
			BalanceAfter:    expense.Balance,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// A fully settled invoice stops alerting.
		if expense.CurrentStatus == DocumentStatusPaid {
			if err := ResolveDocumentAlerts(ctx, tx, firmId, "expenses", expense.ID); err != nil {
				return err
			}
		}
		return PublishToLedger(ctx, tx, firmId, input.PaymentDate, record.ID, LedgerRefExpensePayment, &record, nil, LedgerEventActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// OutstandingExpenseBalance sums open balances; cancelled documents keep
// their balance for audit but never count here.
func OutstandingExpenseBalance(ctx context.Context, firmId string) (decimal.Decimal, error) {
	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&Expense{}).
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
