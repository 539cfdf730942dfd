package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentOrder batches payments against several expenses so they can be
// approved and then settled from one account in a single all-or-nothing
// posting (orden de pago).
type PaymentOrder struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	FirmId        string              `gorm:"index;not null" json:"firm_id"`
	OrderNumber   string              `gorm:"size:50;not null" json:"order_number"`
	SequenceNo    decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	AccountId     int                 `gorm:"not null" json:"account_id" binding:"required"`
	CurrencyId    int                 `gorm:"not null" json:"currency_id"`
	TotalAmount   decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CurrentStatus PaymentOrderStatus  `gorm:"type:enum('Draft','Approved','Executed','Cancelled');default:Draft" json:"current_status"`
	PaymentDate   *time.Time          `gorm:"default:null" json:"payment_date"`
	CancelReason  string              `gorm:"size:255;default:null" json:"cancel_reason"`
	Notes         string              `gorm:"type:text;default:null" json:"notes"`
	Items         []*PaymentOrderItem `gorm:"foreignKey:PaymentOrderId" json:"items"`
	Documents     []*Document         `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentOrderItem allocates part of the order total to one expense.
type PaymentOrderItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	PaymentOrderId int             `gorm:"index;not null" json:"payment_order_id"`
	ExpenseId      int             `gorm:"index;not null" json:"expense_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPaymentOrder struct {
	AccountId int                    `json:"account_id" binding:"required"`
	Notes     string                 `json:"notes"`
	Items     []*NewPaymentOrderItem `json:"items" binding:"required,dive"`
}

type NewPaymentOrderItem struct {
	ExpenseId int             `json:"expense_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

func (po *PaymentOrder) Reference() string {
	return fmt.Sprintf("payment order %s (id=%d)", po.OrderNumber, po.ID)
}

// Cancel mutates the in-memory order only; persistence happens in the
// caller's transaction. A blank or whitespace-only reason is rejected,
// same as for documents.
func (po *PaymentOrder) Cancel(reason string) error {
	if po.CurrentStatus.IsTerminal() {
		return errInvalidStateTransition(po.Reference(), po.CurrentStatus, "cancel")
	}
	if strings.TrimSpace(reason) == "" {
		return errMissingReason(po.Reference())
	}
	po.CurrentStatus = PaymentOrderStatusCancelled
	po.CancelReason = reason
	return nil
}

// validate input for both create & update. (id = 0 for create)
func (input *NewPaymentOrder) validate(ctx context.Context, firmId string, id int) (*FinancialAccount, []*Expense, error) {
	if id > 0 {
		if err := utils.ValidateResourceId[PaymentOrder](ctx, firmId, id); err != nil {
			return nil, nil, err
		}
	}
	if len(input.Items) == 0 {
		return nil, nil, errors.New("a payment order needs at least one item")
	}

	account, err := utils.FetchModel[FinancialAccount](ctx, firmId, input.AccountId)
	if err != nil {
		return nil, nil, errors.New("financial account not found")
	}

	seen := map[int]bool{}
	expenses := make([]*Expense, 0, len(input.Items))
	for _, item := range input.Items {
		if seen[item.ExpenseId] {
			return nil, nil, fmt.Errorf("expense %d listed twice", item.ExpenseId)
		}
		seen[item.ExpenseId] = true

		expense, err := utils.FetchModel[Expense](ctx, firmId, item.ExpenseId)
		if err != nil {
			return nil, nil, fmt.Errorf("expense %d not found", item.ExpenseId)
		}
		if !expense.CurrentStatus.CanReceivePayment() {
			return nil, nil, errInvalidStateTransition(expense.Reference(), expense.CurrentStatus, "include in payment order")
		}
		if expense.CurrencyId != account.CurrencyId {
			return nil, nil, errCurrencyMismatch(expense.Reference(), account.CurrencyId, expense.CurrencyId)
		}
		if !item.Amount.IsPositive() {
			return nil, nil, errInvalidAmount(expense.Reference(), item.Amount)
		}
		if Round2(item.Amount).GreaterThan(expense.Balance) {
			return nil, nil, errAmountExceedsBalance(expense.Reference(), Round2(item.Amount), expense.Balance)
		}
		expenses = append(expenses, expense)
	}
	return account, expenses, nil
}

func CreatePaymentOrder(ctx context.Context, input *NewPaymentOrder) (*PaymentOrder, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	account, _, err := input.validate(ctx, firmId, 0)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]*PaymentOrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		amount := Round2(item.Amount)
		total = total.Add(amount)
		items = append(items, &PaymentOrderItem{
			ExpenseId: item.ExpenseId,
			Amount:    amount,
		})
	}

	seqNo, err := utils.GetSequence[PaymentOrder](ctx, firmId)
	if err != nil {
		return nil, err
	}

	order := PaymentOrder{
		FirmId:        firmId,
		OrderNumber:   fmt.Sprintf("OP-%06d", seqNo),
		SequenceNo:    decimal.NewFromInt(seqNo),
		AccountId:     account.ID,
		CurrencyId:    account.CurrencyId,
		TotalAmount:   Round2(total),
		CurrentStatus: PaymentOrderStatusDraft,
		Notes:         input.Notes,
		Items:         items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetPaymentOrder(ctx context.Context, id int) (*PaymentOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[PaymentOrder](ctx, firmId, id, "Items", "Documents")
}

func ListPaymentOrders(ctx context.Context) ([]*PaymentOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[PaymentOrder](ctx, firmId, "Items")
}

func ApprovePaymentOrder(ctx context.Context, id int) (*PaymentOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	order, err := utils.FetchModel[PaymentOrder](ctx, firmId, id, "Items")
	if err != nil {
		return nil, err
	}
	if order.CurrentStatus != PaymentOrderStatusDraft {
		return nil, errInvalidStateTransition(order.Reference(), order.CurrentStatus, "approve")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(order).Update("CurrentStatus", PaymentOrderStatusApproved).Error; err != nil {
		return nil, err
	}
	order.CurrentStatus = PaymentOrderStatusApproved
	return order, nil
}

func CancelPaymentOrder(ctx context.Context, id int, reason string) (*PaymentOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	order, err := utils.FetchModel[PaymentOrder](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	before := *order
	if err := order.Cancel(reason); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(map[string]interface{}{
			"CurrentStatus": order.CurrentStatus,
			"CancelReason":  order.CancelReason,
		}).Error; err != nil {
			return err
		}
		// Cancelled orders carry no commitment; close their open alerts.
		if err := ResolveDocumentAlerts(ctx, tx, firmId, "payment_orders", order.ID); err != nil {
			return err
		}
		return createHistory(tx, "Cancel", order.ID, "payment_orders", before, order, "Payment order cancelled: "+reason)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ValidatePaymentOrderExecution is the pure all-or-nothing check run inside
// the execution transaction, against freshly locked rows. Any failure rejects
// the whole order with no partial effect.
func ValidatePaymentOrderExecution(order *PaymentOrder, account *FinancialAccount, expensesById map[int]*Expense) error {
	if order.CurrentStatus != PaymentOrderStatusApproved {
		return errInvalidStateTransition(order.Reference(), order.CurrentStatus, "execute")
	}
	if account.CurrencyId != order.CurrencyId {
		return errCurrencyMismatch(order.Reference(), order.CurrencyId, account.CurrencyId)
	}

	total := decimal.Zero
	for _, item := range order.Items {
		expense, ok := expensesById[item.ExpenseId]
		if !ok {
			return fmt.Errorf("%s: expense %d not found", order.Reference(), item.ExpenseId)
		}
		if !expense.CurrentStatus.CanReceivePayment() {
			return errInvalidStateTransition(expense.Reference(), expense.CurrentStatus, "pay via order")
		}
		if expense.CurrencyId != account.CurrencyId {
			return errCurrencyMismatch(expense.Reference(), account.CurrencyId, expense.CurrencyId)
		}
		if item.Amount.GreaterThan(expense.Balance) {
			return errAmountExceedsBalance(expense.Reference(), item.Amount, expense.Balance)
		}
		total = total.Add(item.Amount)
	}

	total = Round2(total)
	if total.GreaterThan(account.CurrentBalance) {
		return errInsufficientFunds(order.Reference(), total, account.CurrentBalance)
	}
	return nil
}
