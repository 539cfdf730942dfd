package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/campodata/agroledger_backend/models"
)

func executionFixture() (*models.PaymentOrder, *models.FinancialAccount, map[int]*models.Expense) {
	account := &models.FinancialAccount{
		ID:             1,
		CurrencyId:     1,
		CurrentBalance: dec("1000.00"),
	}
	expenses := map[int]*models.Expense{
		10: {ID: 10, CurrencyId: 1, Balance: dec("400.00"), CurrentStatus: models.DocumentStatusConfirmed},
		11: {ID: 11, CurrencyId: 1, Balance: dec("300.00"), CurrentStatus: models.DocumentStatusPartialPaid},
	}
	order := &models.PaymentOrder{
		ID:            5,
		OrderNumber:   "OP-000005",
		AccountId:     1,
		CurrencyId:    1,
		CurrentStatus: models.PaymentOrderStatusApproved,
		Items: []*models.PaymentOrderItem{
			{ExpenseId: 10, Amount: dec("400.00")},
			{ExpenseId: 11, Amount: dec("150.00")},
		},
	}
	return order, account, expenses
}

func TestValidatePaymentOrderExecutionOK(t *testing.T) {
	order, account, expenses := executionFixture()
	if err := models.ValidatePaymentOrderExecution(order, account, expenses); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
}

func TestValidatePaymentOrderExecutionRequiresApproved(t *testing.T) {
	for _, status := range []models.PaymentOrderStatus{
		models.PaymentOrderStatusDraft,
		models.PaymentOrderStatusExecuted,
		models.PaymentOrderStatusCancelled,
	} {
		order, account, expenses := executionFixture()
		order.CurrentStatus = status
		err := models.ValidatePaymentOrderExecution(order, account, expenses)
		if !errors.Is(err, models.ErrInvalidStateTransition) {
			t.Errorf("status %s: got %v, want ErrInvalidStateTransition", status, err)
		}
	}
}

func TestValidatePaymentOrderExecutionCurrencyMismatch(t *testing.T) {
	order, account, expenses := executionFixture()
	account.CurrencyId = 2
	err := models.ValidatePaymentOrderExecution(order, account, expenses)
	if !errors.Is(err, models.ErrCurrencyMismatch) {
		t.Errorf("account currency: got %v, want ErrCurrencyMismatch", err)
	}

	order, account, expenses = executionFixture()
	expenses[11].CurrencyId = 2
	err = models.ValidatePaymentOrderExecution(order, account, expenses)
	if !errors.Is(err, models.ErrCurrencyMismatch) {
		t.Errorf("expense currency: got %v, want ErrCurrencyMismatch", err)
	}
}

// All-or-nothing: one item over its expense balance rejects the whole order.
func TestValidatePaymentOrderExecutionItemExceedsBalance(t *testing.T) {
	order, account, expenses := executionFixture()
	expenses[11].Balance = dec("149.99")
	err := models.ValidatePaymentOrderExecution(order, account, expenses)
	if !errors.Is(err, models.ErrAmountExceedsBalance) {
		t.Errorf("got %v, want ErrAmountExceedsBalance", err)
	}
}

func TestValidatePaymentOrderExecutionInsufficientFunds(t *testing.T) {
	order, account, expenses := executionFixture()
	account.CurrentBalance = dec("549.99")
	err := models.ValidatePaymentOrderExecution(order, account, expenses)
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}

	// Exactly the total is enough.
	account.CurrentBalance = dec("550.00")
	if err := models.ValidatePaymentOrderExecution(order, account, expenses); err != nil {
		t.Errorf("exact funds rejected: %v", err)
	}
}

func TestValidatePaymentOrderExecutionMissingExpense(t *testing.T) {
	order, account, expenses := executionFixture()
	delete(expenses, 11)
	if err := models.ValidatePaymentOrderExecution(order, account, expenses); err == nil {
		t.Error("missing expense row should reject the order")
	}
}

func TestValidatePaymentOrderExecutionSettledExpense(t *testing.T) {
	order, account, expenses := executionFixture()
	expenses[10].CurrentStatus = models.DocumentStatusPaid
	err := models.ValidatePaymentOrderExecution(order, account, expenses)
	if !errors.Is(err, models.ErrInvalidStateTransition) {
		t.Errorf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestPaymentOrderCancelRequiresReason(t *testing.T) {
	order := &models.PaymentOrder{ID: 7, OrderNumber: "OP-000007", CurrentStatus: models.PaymentOrderStatusDraft}

	// Whitespace-only counts as blank, same as for documents.
	if err := order.Cancel("   "); !errors.Is(err, models.ErrMissingReason) {
		t.Fatalf("got %v, want ErrMissingReason", err)
	}
	if order.CurrentStatus != models.PaymentOrderStatusDraft {
		t.Errorf("rejected cancel moved status to %s", order.CurrentStatus)
	}

	if err := order.Cancel("duplicada"); err != nil {
		t.Fatalf("cancel with reason: %v", err)
	}
	if order.CurrentStatus != models.PaymentOrderStatusCancelled || order.CancelReason != "duplicada" {
		t.Errorf("got %s / %q after cancel", order.CurrentStatus, order.CancelReason)
	}
}

func TestPaymentOrderCancelFromTerminalRejected(t *testing.T) {
	for _, status := range []models.PaymentOrderStatus{
		models.PaymentOrderStatusExecuted,
		models.PaymentOrderStatusCancelled,
	} {
		order := &models.PaymentOrder{ID: 8, OrderNumber: "OP-000008", CurrentStatus: status}
		if err := order.Cancel("tarde"); !errors.Is(err, models.ErrInvalidStateTransition) {
			t.Errorf("status %s: got %v, want ErrInvalidStateTransition", status, err)
		}
	}
}

func TestRound2HalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1.00",
		"-1.005": "-1.01",
		"2.675":  "2.68",
	}
	for in, want := range cases {
		got := models.Round2(dec(in))
		if !got.Equal(dec(want)) {
			t.Errorf("Round2(%s) = %s, want %s", in, got, want)
		}
	}
}
