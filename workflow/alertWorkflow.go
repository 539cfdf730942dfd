package workflow

import (
	"context"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/models"
	"github.com/bsm/redislock"
)

const orderPendingAfterDays = 5

// RunAlertSweep evaluates every due-date and pending-order rule for one firm.
// Rules are isolated: one failing rule is logged and the sweep moves on, so a
// bad row never silences the other alerts.
func RunAlertSweep(ctx context.Context, firmId string, today time.Time) error {
	logger := config.GetLogger()

	if err := CheckExpenseDueAlerts(ctx, firmId, today); err != nil {
		config.LogError(logger, "alertWorkflow", "RunAlertSweep", "expense due", map[string]interface{}{"firm_id": firmId}, err)
	}
	if err := CheckIncomeDueAlerts(ctx, firmId, today); err != nil {
		config.LogError(logger, "alertWorkflow", "RunAlertSweep", "income due", map[string]interface{}{"firm_id": firmId}, err)
	}
	if err := CheckPaymentOrderAlerts(ctx, firmId, today); err != nil {
		config.LogError(logger, "alertWorkflow", "RunAlertSweep", "payment order pending", map[string]interface{}{"firm_id": firmId}, err)
	}
	return nil
}

// RunAlertSweepWithLock wraps the sweep in a best-effort redis lock so
// overlapping cron schedules don't double-evaluate. Losing the lock just
// skips this round; the dedup index keeps even a double run harmless.
func RunAlertSweepWithLock(ctx context.Context, firmId string, today time.Time) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return RunAlertSweep(ctx, firmId, today)
	}

	lock, err := locker.Obtain(ctx, "alert-sweep:"+firmId, 5*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		return nil
	}
	if err != nil {
		// Redis being down never stops alerting.
		return RunAlertSweep(ctx, firmId, today)
	}
	defer lock.Release(ctx)
	return RunAlertSweep(ctx, firmId, today)
}

// CheckExpenseDueAlerts raises overdue / approaching-due alerts for open
// provider invoices.
func CheckExpenseDueAlerts(ctx context.Context, firmId string, today time.Time) error {
	db := config.GetDB()
	var expenses []*models.Expense
	err := db.WithContext(ctx).
		Where("firm_id = ? AND due_date IS NOT NULL AND current_status IN ?", firmId,
			[]models.DocumentStatus{models.DocumentStatusConfirmed, models.DocumentStatusPartialPaid}).
		Find(&expenses).Error
	if err != nil {
		return err
	}

	logger := config.GetLogger()
	for _, expense := range expenses {
		draft, ok := models.EvaluateExpenseDue(expense, today)
		if !ok {
			continue
		}
		if _, err := models.EmitAlert(ctx, firmId, draft); err != nil {
			config.LogError(logger, "alertWorkflow", "CheckExpenseDueAlerts", "emit", map[string]interface{}{
				"firm_id":    firmId,
				"expense_id": expense.ID,
			}, err)
		}
	}
	return nil
}

// CheckIncomeDueAlerts mirrors CheckExpenseDueAlerts for client invoices.
func CheckIncomeDueAlerts(ctx context.Context, firmId string, today time.Time) error {
	db := config.GetDB()
	var incomes []*models.Income
	err := db.WithContext(ctx).
		Where("firm_id = ? AND due_date IS NOT NULL AND current_status IN ?", firmId,
			[]models.DocumentStatus{models.DocumentStatusConfirmed, models.DocumentStatusPartialPaid}).
		Find(&incomes).Error
	if err != nil {
		return err
	}

	logger := config.GetLogger()
	for _, income := range incomes {
		draft, ok := models.EvaluateIncomeDue(income, today)
		if !ok {
			continue
		}
		if _, err := models.EmitAlert(ctx, firmId, draft); err != nil {
			config.LogError(logger, "alertWorkflow", "CheckIncomeDueAlerts", "emit", map[string]interface{}{
				"firm_id":   firmId,
				"income_id": income.ID,
			}, err)
		}
	}
	return nil
}

// CheckPaymentOrderAlerts flags orders stuck in Draft or Approved.
func CheckPaymentOrderAlerts(ctx context.Context, firmId string, today time.Time) error {
	db := config.GetDB()
	var orders []*models.PaymentOrder
	err := db.WithContext(ctx).
		Where("firm_id = ? AND current_status IN ?", firmId,
			[]models.PaymentOrderStatus{models.PaymentOrderStatusDraft, models.PaymentOrderStatusApproved}).
		Find(&orders).Error
	if err != nil {
		return err
	}

	logger := config.GetLogger()
	for _, order := range orders {
		draft, ok := models.EvaluatePaymentOrderPending(order, today, orderPendingAfterDays)
		if !ok {
			continue
		}
		if _, err := models.EmitAlert(ctx, firmId, draft); err != nil {
			config.LogError(logger, "alertWorkflow", "CheckPaymentOrderAlerts", "emit", map[string]interface{}{
				"firm_id":  firmId,
				"order_id": order.ID,
			}, err)
		}
	}
	return nil
}

// ListActiveFirmIds feeds the sweep loop in the cron binary.
func ListActiveFirmIds(ctx context.Context) ([]string, error) {
	db := config.GetDB()
	var ids []string
	err := db.WithContext(ctx).Model(&models.Firm{}).
		Where("is_active = 1").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
