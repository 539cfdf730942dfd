package models_test

import (
	"testing"
	"time"

	"bitbucket.org/campodata/agroledger_backend/models"
)

var sweepToday = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func dueExpense(status models.DocumentStatus, due time.Time, alertDays int) *models.Expense {
	return &models.Expense{
		ID:            42,
		InvoiceSeries: "A",
		InvoiceNumber: "0042",
		CurrentStatus: status,
		DueDate:       &due,
		AlertDays:     alertDays,
	}
}

func TestEvaluateExpenseDueOverdue(t *testing.T) {
	expense := dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, -10), 5)
	draft, ok := models.EvaluateExpenseDue(expense, sweepToday)
	if !ok {
		t.Fatal("expected an overdue alert")
	}
	if draft.RuleName != models.AlertRuleInvoiceOverdue {
		t.Errorf("rule %s, want FACTURA_VENCIDA", draft.RuleName)
	}
	if draft.Priority != models.AlertPriorityHigh {
		t.Errorf("priority %s, want high", draft.Priority)
	}
	if draft.Message != "expense A-0042 (id=42) vencida hace 10 días" {
		t.Errorf("message %q", draft.Message)
	}
	if draft.ReferenceType != "expenses" || draft.ReferenceId != 42 {
		t.Errorf("reference %s/%d", draft.ReferenceType, draft.ReferenceId)
	}
}

func TestEvaluateExpenseDueApproaching(t *testing.T) {
	// 5 days out with a 5-day window: approaching, medium priority.
	expense := dueExpense(models.DocumentStatusPartialPaid, sweepToday.AddDate(0, 0, 5), 5)
	draft, ok := models.EvaluateExpenseDue(expense, sweepToday)
	if !ok {
		t.Fatal("expected an approaching alert")
	}
	if draft.RuleName != models.AlertRuleInvoiceApproaching {
		t.Errorf("rule %s, want FACTURA_PROXIMO_VENCIMIENTO", draft.RuleName)
	}
	if draft.Priority != models.AlertPriorityMedium {
		t.Errorf("priority %s, want medium", draft.Priority)
	}

	// 3 days out escalates to high.
	expense = dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, 3), 5)
	draft, ok = models.EvaluateExpenseDue(expense, sweepToday)
	if !ok {
		t.Fatal("expected an approaching alert")
	}
	if draft.Priority != models.AlertPriorityHigh {
		t.Errorf("priority %s, want high at 3 days", draft.Priority)
	}
}

func TestEvaluateExpenseDueOnDueDate(t *testing.T) {
	// The due date itself sits between the two windows: not overdue yet,
	// no longer approaching. Nothing fires until the day after.
	expense := dueExpense(models.DocumentStatusConfirmed, sweepToday, 5)
	if draft, ok := models.EvaluateExpenseDue(expense, sweepToday); ok {
		t.Errorf("due today should not alert, got rule %s", draft.RuleName)
	}

	expense = dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, -1), 5)
	draft, ok := models.EvaluateExpenseDue(expense, sweepToday)
	if !ok {
		t.Fatal("one day past due should alert")
	}
	if draft.RuleName != models.AlertRuleInvoiceOverdue {
		t.Errorf("rule %s, want FACTURA_VENCIDA", draft.RuleName)
	}

	expense = dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, 1), 5)
	draft, ok = models.EvaluateExpenseDue(expense, sweepToday)
	if !ok {
		t.Fatal("one day before due should alert")
	}
	if draft.RuleName != models.AlertRuleInvoiceApproaching {
		t.Errorf("rule %s, want FACTURA_PROXIMO_VENCIMIENTO", draft.RuleName)
	}
}

func TestEvaluateExpenseDueOutsideWindow(t *testing.T) {
	expense := dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, 6), 5)
	if _, ok := models.EvaluateExpenseDue(expense, sweepToday); ok {
		t.Error("6 days out with a 5-day window should not alert")
	}
}

func TestEvaluateExpenseDueSkipsSettledDocuments(t *testing.T) {
	for _, status := range []models.DocumentStatus{
		models.DocumentStatusDraft,
		models.DocumentStatusRegistered,
		models.DocumentStatusPaid,
		models.DocumentStatusCancelled,
	} {
		expense := dueExpense(status, sweepToday.AddDate(0, 0, -30), 5)
		if _, ok := models.EvaluateExpenseDue(expense, sweepToday); ok {
			t.Errorf("status %s should never alert", status)
		}
	}
}

func TestEvaluateExpenseDueNoDueDate(t *testing.T) {
	expense := &models.Expense{ID: 1, CurrentStatus: models.DocumentStatusConfirmed}
	if _, ok := models.EvaluateExpenseDue(expense, sweepToday); ok {
		t.Error("no due date should never alert")
	}
}

func TestEvaluateExpenseDueDefaultWindow(t *testing.T) {
	// alert_days 0 falls back to the 5-day default.
	expense := dueExpense(models.DocumentStatusConfirmed, sweepToday.AddDate(0, 0, 4), 0)
	if _, ok := models.EvaluateExpenseDue(expense, sweepToday); !ok {
		t.Error("4 days out should alert with the default window")
	}
}

func TestEvaluateIncomeDue(t *testing.T) {
	due := sweepToday.AddDate(0, 0, -1)
	income := &models.Income{
		ID:            9,
		InvoiceSeries: "B",
		InvoiceNumber: "0009",
		CurrentStatus: models.DocumentStatusConfirmed,
		DueDate:       &due,
		AlertDays:     5,
	}
	draft, ok := models.EvaluateIncomeDue(income, sweepToday)
	if !ok {
		t.Fatal("expected an overdue alert")
	}
	if draft.RuleName != models.AlertRuleIncomeOverdue {
		t.Errorf("rule %s, want INGRESO_VENCIDO", draft.RuleName)
	}
	if draft.ReferenceType != "incomes" {
		t.Errorf("reference type %s", draft.ReferenceType)
	}
}

func pendingOrder(status models.PaymentOrderStatus, ageDays int) *models.PaymentOrder {
	return &models.PaymentOrder{
		ID:            3,
		OrderNumber:   "OP-000003",
		CurrentStatus: status,
		CreatedAt:     sweepToday.AddDate(0, 0, -ageDays),
	}
}

func TestEvaluatePaymentOrderPending(t *testing.T) {
	// Too young: no alert.
	if _, ok := models.EvaluatePaymentOrderPending(pendingOrder(models.PaymentOrderStatusDraft, 4), sweepToday, 5); ok {
		t.Error("4-day-old draft should not alert with a 5-day threshold")
	}

	draft, ok := models.EvaluatePaymentOrderPending(pendingOrder(models.PaymentOrderStatusDraft, 5), sweepToday, 5)
	if !ok {
		t.Fatal("5-day-old draft should alert")
	}
	if draft.RuleName != models.AlertRuleOrderPending {
		t.Errorf("rule %s, want ORDEN_PAGO_PENDIENTE", draft.RuleName)
	}
	if draft.Priority != models.AlertPriorityMedium {
		t.Errorf("priority %s, want medium", draft.Priority)
	}

	// Approved orders use the pending-payment rule.
	draft, ok = models.EvaluatePaymentOrderPending(pendingOrder(models.PaymentOrderStatusApproved, 6), sweepToday, 5)
	if !ok {
		t.Fatal("approved order should alert")
	}
	if draft.RuleName != models.AlertRuleOrderPendingPayment {
		t.Errorf("rule %s, want ORDEN_PAGO_PENDIENTE_PAGO", draft.RuleName)
	}

	// Twice the threshold escalates to high.
	draft, ok = models.EvaluatePaymentOrderPending(pendingOrder(models.PaymentOrderStatusDraft, 10), sweepToday, 5)
	if !ok {
		t.Fatal("10-day-old draft should alert")
	}
	if draft.Priority != models.AlertPriorityHigh {
		t.Errorf("priority %s, want high at 2x threshold", draft.Priority)
	}
}

func TestEvaluatePaymentOrderPendingTerminal(t *testing.T) {
	for _, status := range []models.PaymentOrderStatus{
		models.PaymentOrderStatusExecuted,
		models.PaymentOrderStatusCancelled,
	} {
		if _, ok := models.EvaluatePaymentOrderPending(pendingOrder(status, 30), sweepToday, 5); ok {
			t.Errorf("status %s should never alert", status)
		}
	}
}
