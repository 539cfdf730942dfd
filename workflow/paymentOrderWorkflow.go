package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExecutePaymentOrder settles an approved order: every item becomes a payment
// on its expense, the funding account is debited once for the order total and
// the order goes Executed. All-or-nothing: any item failing validation rolls
// the whole posting back.
//
// The firm posting lock serializes concurrent executions against the same
// account; row locks cover the documents themselves.
func ExecutePaymentOrder(ctx context.Context, orderId int, paymentDate time.Time) (*models.PaymentOrder, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	var order *models.PaymentOrder

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireFirmPostingLock(tx, firmId); err != nil {
			return err
		}
		defer ReleaseFirmPostingLock(tx, firmId)

		order = &models.PaymentOrder{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("firm_id = ?", firmId).
			First(order, orderId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		var account models.FinancialAccount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("firm_id = ?", firmId).
			First(&account, order.AccountId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		expensesById := make(map[int]*models.Expense, len(order.Items))
		for _, item := range order.Items {
			var expense models.Expense
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("firm_id = ?", firmId).
				First(&expense, item.ExpenseId).Error
			if err != nil {
				return utils.ErrorRecordNotFound
			}
			expensesById[item.ExpenseId] = &expense
		}

		if err := models.ValidatePaymentOrderExecution(order, &account, expensesById); err != nil {
			return err
		}

		for _, item := range order.Items {
			expense := expensesById[item.ExpenseId]
			balanceBefore := expense.Balance
			if err := expense.ApplyPayment(item.Amount); err != nil {
				return err
			}
			if err := tx.Model(expense).Updates(map[string]interface{}{
				"PaidAmount":    expense.PaidAmount,
				"Balance":       expense.Balance,
				"CurrentStatus": expense.CurrentStatus,
			}).Error; err != nil {
				return err
			}

			record := models.PaymentRecord{
				FirmId:         firmId,
				DocumentType:   models.DocumentKindExpense,
				DocumentId:     expense.ID,
				PaymentOrderId: order.ID,
				PaymentDate:    paymentDate,
				Amount:         item.Amount,
				Method:         models.PaymentMethodTransfer,
				AccountId:      account.ID,
				BalanceBefore:  balanceBefore,
				BalanceAfter:   expense.Balance,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}

			// A fully settled invoice stops alerting.
			if expense.CurrentStatus == models.DocumentStatusPaid {
				if err := models.ResolveDocumentAlerts(ctx, tx, firmId, "expenses", expense.ID); err != nil {
					return err
				}
			}
		}

		newBalance := models.Round2(account.CurrentBalance.Sub(order.TotalAmount))
		if err := tx.Model(&account).Update("CurrentBalance", newBalance).Error; err != nil {
			return err
		}

		before := *order
		if err := tx.Model(order).Updates(map[string]interface{}{
			"CurrentStatus": models.PaymentOrderStatusExecuted,
			"PaymentDate":   paymentDate,
		}).Error; err != nil {
			return err
		}
		order.CurrentStatus = models.PaymentOrderStatusExecuted
		order.PaymentDate = &paymentDate

		if err := models.ResolveDocumentAlerts(ctx, tx, firmId, "payment_orders", order.ID); err != nil {
			return err
		}

		return models.PublishToLedger(ctx, tx, firmId, paymentDate, order.ID, models.LedgerRefPaymentOrder, order, &before, models.LedgerEventActionUpdate)
	})
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "paymentOrderWorkflow", "ExecutePaymentOrder", "execute", map[string]interface{}{
			"firm_id":  firmId,
			"order_id": orderId,
		}, err)
		return nil, err
	}
	return order, nil
}
