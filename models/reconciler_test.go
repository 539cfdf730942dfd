package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/campodata/agroledger_backend/models"
	"github.com/shopspring/decimal"
)

func newConfirmedExpense(total string) *models.Expense {
	return &models.Expense{
		ID:            1,
		InvoiceSeries: "A",
		InvoiceNumber: "0001",
		TotalAmount:   dec(total),
		Balance:       dec(total),
		CurrentStatus: models.DocumentStatusConfirmed,
	}
}

func TestApplyPaymentFull(t *testing.T) {
	expense := newConfirmedExpense("1500.00")
	if err := expense.ApplyPayment(dec("1500.00")); err != nil {
		t.Fatal(err)
	}
	if expense.CurrentStatus != models.DocumentStatusPaid {
		t.Errorf("status %s, want Paid", expense.CurrentStatus)
	}
	if !expense.Balance.IsZero() {
		t.Errorf("balance %s, want 0", expense.Balance)
	}
	if !expense.PaidAmount.Equal(dec("1500.00")) {
		t.Errorf("paid %s, want 1500.00", expense.PaidAmount)
	}
}

func TestApplyPaymentPartialThenFull(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	partials := []string{"20.00", "30.50", "49.50"}
	for i, amount := range partials {
		if err := expense.ApplyPayment(dec(amount)); err != nil {
			t.Fatalf("partial %d: %v", i+1, err)
		}
	}
	if expense.CurrentStatus != models.DocumentStatusPaid {
		t.Errorf("status %s, want Paid after exact partials", expense.CurrentStatus)
	}
	if !expense.Balance.IsZero() {
		t.Errorf("balance %s, want 0", expense.Balance)
	}
}

func TestApplyPaymentIntermediateStatus(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	if err := expense.ApplyPayment(dec("40.00")); err != nil {
		t.Fatal(err)
	}
	if expense.CurrentStatus != models.DocumentStatusPartialPaid {
		t.Errorf("status %s, want Partial Paid", expense.CurrentStatus)
	}
	if !expense.Balance.Equal(dec("60.00")) {
		t.Errorf("balance %s, want 60.00", expense.Balance)
	}
}

func TestApplyPaymentOverpayRejected(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	err := expense.ApplyPayment(dec("100.01"))
	if !errors.Is(err, models.ErrAmountExceedsBalance) {
		t.Fatalf("got %v, want ErrAmountExceedsBalance", err)
	}
	// A rejected payment must not mutate the document.
	if expense.CurrentStatus != models.DocumentStatusConfirmed {
		t.Errorf("status changed to %s on rejected payment", expense.CurrentStatus)
	}
	if !expense.PaidAmount.IsZero() || !expense.Balance.Equal(dec("100.00")) {
		t.Errorf("amounts changed on rejected payment: paid=%s balance=%s", expense.PaidAmount, expense.Balance)
	}
}

func TestApplyPaymentNonPositiveRejected(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	for _, amount := range []string{"0", "-5"} {
		if err := expense.ApplyPayment(dec(amount)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("amount %s: got %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestApplyPaymentFromDraftRejected(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	expense.CurrentStatus = models.DocumentStatusDraft
	if err := expense.ApplyPayment(dec("10.00")); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestConfirmTransitions(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	expense.CurrentStatus = models.DocumentStatusDraft
	if err := expense.Confirm(); err != nil {
		t.Fatal(err)
	}
	if expense.CurrentStatus != models.DocumentStatusConfirmed {
		t.Errorf("status %s, want Confirmed", expense.CurrentStatus)
	}
	// Confirming twice is not legal.
	if err := expense.Confirm(); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	if err := expense.Cancel("  "); !errors.Is(err, models.ErrMissingReason) {
		t.Fatalf("got %v, want ErrMissingReason", err)
	}
	if err := expense.Cancel("duplicated invoice"); err != nil {
		t.Fatal(err)
	}
	if expense.CurrentStatus != models.DocumentStatusCancelled {
		t.Errorf("status %s, want Cancelled", expense.CurrentStatus)
	}
}

// Cancelling leaves amounts untouched so the audit trail still shows what was
// paid before the cancellation.
func TestCancelKeepsAmounts(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	if err := expense.ApplyPayment(dec("30.00")); err != nil {
		t.Fatal(err)
	}
	if err := expense.Cancel("wrong provider"); err != nil {
		t.Fatal(err)
	}
	if !expense.PaidAmount.Equal(dec("30.00")) || !expense.Balance.Equal(dec("70.00")) {
		t.Errorf("amounts changed on cancel: paid=%s balance=%s", expense.PaidAmount, expense.Balance)
	}
}

func TestCancelFromTerminalRejected(t *testing.T) {
	expense := newConfirmedExpense("100.00")
	if err := expense.ApplyPayment(dec("100.00")); err != nil {
		t.Fatal(err)
	}
	if err := expense.Cancel("too late"); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("cancel from Paid: got %v, want ErrInvalidStateTransition", err)
	}
	expense.CurrentStatus = models.DocumentStatusCancelled
	if err := expense.Cancel("again"); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("cancel from Cancelled: got %v, want ErrInvalidStateTransition", err)
	}
}

// Incomes share the lifecycle but accumulate collected_amount.
func TestIncomeCollectionLifecycle(t *testing.T) {
	income := &models.Income{
		ID:            7,
		InvoiceSeries: "B",
		InvoiceNumber: "0099",
		TotalAmount:   dec("250.00"),
		Balance:       dec("250.00"),
		CurrentStatus: models.DocumentStatusConfirmed,
	}
	if err := income.ApplyCollection(dec("250.00")); err != nil {
		t.Fatal(err)
	}
	if income.CurrentStatus != models.DocumentStatusPaid {
		t.Errorf("status %s, want Paid", income.CurrentStatus)
	}
	if !income.CollectedAmount.Equal(dec("250.00")) {
		t.Errorf("collected %s, want 250.00", income.CollectedAmount)
	}
	if err := income.ApplyCollection(decimal.NewFromInt(1)); !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("collection on Paid income: got %v", err)
	}
}
