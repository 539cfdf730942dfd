package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Shared lifecycle arithmetic for expenses and incomes. The two tables differ
// in party and in the name of the accumulated side (paid vs collected) but
// run the exact same state machine, so the transitions live here once and the
// entity methods stay thin.
//
// Balance is always recomputed from total − paid; the stored column exists
// for queries and is never accepted from input.

func applyDocumentPayment(reference string, status DocumentStatus, totalAmount, paidAmount, amount decimal.Decimal) (DocumentStatus, decimal.Decimal, decimal.Decimal, error) {
	if !status.CanReceivePayment() {
		return status, paidAmount, decimal.Zero, errInvalidStateTransition(reference, status, "apply payment")
	}
	if !amount.IsPositive() {
		return status, paidAmount, decimal.Zero, errInvalidAmount(reference, amount)
	}

	balance := Round2(totalAmount.Sub(paidAmount))
	amt := Round2(amount)
	if amt.GreaterThan(balance) {
		return status, paidAmount, balance, errAmountExceedsBalance(reference, amt, balance)
	}

	newPaid := Round2(paidAmount.Add(amt))
	newBalance := Round2(totalAmount.Sub(newPaid))
	newStatus := DocumentStatusPartialPaid
	if newBalance.IsZero() {
		newStatus = DocumentStatusPaid
	}
	return newStatus, newPaid, newBalance, nil
}

func confirmDocument(reference string, status DocumentStatus) (DocumentStatus, error) {
	if !status.CanConfirm() {
		return status, errInvalidStateTransition(reference, status, "confirm")
	}
	return DocumentStatusConfirmed, nil
}

// cancelDocument leaves amounts untouched: the balance stays on the row for
// audit and the cancelled status excludes it from outstanding aggregates.
func cancelDocument(reference string, status DocumentStatus, reason string) (DocumentStatus, error) {
	if status.IsTerminal() {
		return status, errInvalidStateTransition(reference, status, "cancel")
	}
	if strings.TrimSpace(reason) == "" {
		return status, errMissingReason(reference)
	}
	return DocumentStatusCancelled, nil
}
