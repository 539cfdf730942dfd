package models

import (
	"fmt"
	"time"
)

// Pure rule evaluations: given a document snapshot and "today", decide
// whether an alert draft should exist. No DB, no clock reads; the sweep
// supplies today so the rules stay deterministic under test.

// duePriority: anything already overdue or due within 3 days is high,
// the rest of the approach window is medium.
func duePriority(today time.Time, due time.Time) AlertPriority {
	if daysUntil(today, due) <= 3 {
		return AlertPriorityHigh
	}
	return AlertPriorityMedium
}

// EvaluateExpenseDue checks one provider invoice against the overdue and
// approaching-due rules. At most one draft comes back: overdue wins.
func EvaluateExpenseDue(expense *Expense, today time.Time) (AlertDraft, bool) {
	return evaluateDocumentDue(
		AlertRuleInvoiceOverdue, AlertRuleInvoiceApproaching,
		"expenses", expense.ID, expense.Reference(),
		expense.CurrentStatus, expense.DueDate, expense.AlertDays, today,
	)
}

// EvaluateIncomeDue mirrors EvaluateExpenseDue for client invoices.
func EvaluateIncomeDue(income *Income, today time.Time) (AlertDraft, bool) {
	return evaluateDocumentDue(
		AlertRuleIncomeOverdue, AlertRuleIncomeApproaching,
		"incomes", income.ID, income.Reference(),
		income.CurrentStatus, income.DueDate, income.AlertDays, today,
	)
}

func evaluateDocumentDue(overdueRule, approachingRule AlertRuleName, refType string, refId int, reference string, status DocumentStatus, dueDate *time.Time, alertDays int, today time.Time) (AlertDraft, bool) {
	// Paid and cancelled documents never alert; drafts have no commitment yet.
	if !status.CanReceivePayment() {
		return AlertDraft{}, false
	}
	if dueDate == nil {
		return AlertDraft{}, false
	}
	if alertDays <= 0 {
		alertDays = defaultAlertDays
	}

	days := daysUntil(today, *dueDate)
	switch {
	case days < 0:
		return AlertDraft{
			RuleName:      overdueRule,
			ReferenceType: refType,
			ReferenceId:   refId,
			Priority:      AlertPriorityHigh,
			Message:       fmt.Sprintf("%s vencida hace %d días", reference, -days),
			DueDate:       dueDate,
		}, true
	// Due today is neither overdue nor approaching; it becomes overdue tomorrow.
	case days > 0 && days <= alertDays:
		return AlertDraft{
			RuleName:      approachingRule,
			ReferenceType: refType,
			ReferenceId:   refId,
			Priority:      duePriority(today, *dueDate),
			Message:       fmt.Sprintf("%s vence en %d días", reference, days),
			DueDate:       dueDate,
		}, true
	}
	return AlertDraft{}, false
}

// EvaluatePaymentOrderPending flags orders sitting unexecuted: drafts that
// were never approved and approved orders nobody has settled.
func EvaluatePaymentOrderPending(order *PaymentOrder, today time.Time, pendingAfterDays int) (AlertDraft, bool) {
	if order.CurrentStatus.IsTerminal() {
		return AlertDraft{}, false
	}
	if pendingAfterDays <= 0 {
		pendingAfterDays = defaultAlertDays
	}
	age := daysUntil(order.CreatedAt, today)
	if age < pendingAfterDays {
		return AlertDraft{}, false
	}

	rule := AlertRuleOrderPending
	message := fmt.Sprintf("%s sin aprobar hace %d días", order.Reference(), age)
	if order.CurrentStatus == PaymentOrderStatusApproved {
		rule = AlertRuleOrderPendingPayment
		message = fmt.Sprintf("%s aprobada sin pagar hace %d días", order.Reference(), age)
	}

	priority := AlertPriorityMedium
	if age >= pendingAfterDays*2 {
		priority = AlertPriorityHigh
	}
	return AlertDraft{
		RuleName:      rule,
		ReferenceType: "payment_orders",
		ReferenceId:   order.ID,
		Priority:      priority,
		Message:       message,
	}, true
}
