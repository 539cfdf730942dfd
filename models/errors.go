package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business-rule failures. All are local validation errors, never infrastructure
// failures; callers match with errors.Is and show the wrapped detail to the user.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountExceedsBalance   = errors.New("amount exceeds balance")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMissingReason          = errors.New("missing reason")
)

func errInvalidAmount(reference string, amount decimal.Decimal) error {
	return fmt.Errorf("%s: amount %s must be greater than zero: %w", reference, amount.StringFixed(2), ErrInvalidAmount)
}

func errAmountExceedsBalance(reference string, amount, balance decimal.Decimal) error {
	return fmt.Errorf("%s: amount %s exceeds balance %s: %w", reference, amount.StringFixed(2), balance.StringFixed(2), ErrAmountExceedsBalance)
}

func errInsufficientFunds(reference string, amount, available decimal.Decimal) error {
	return fmt.Errorf("%s: order total %s exceeds available funds %s: %w", reference, amount.StringFixed(2), available.StringFixed(2), ErrInsufficientFunds)
}

func errCurrencyMismatch(reference string, want, got int) error {
	return fmt.Errorf("%s: currency %d does not match %d: %w", reference, got, want, ErrCurrencyMismatch)
}

func errInvalidStateTransition(reference string, from fmt.Stringer, action string) error {
	return fmt.Errorf("%s: cannot %s from status %q: %w", reference, action, from, ErrInvalidStateTransition)
}

func errMissingReason(reference string) error {
	return fmt.Errorf("%s: a reason is required: %w", reference, ErrMissingReason)
}

func (s DocumentStatus) String() string     { return string(s) }
func (s PaymentOrderStatus) String() string { return string(s) }
