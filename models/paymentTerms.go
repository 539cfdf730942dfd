package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled portion of a document total. Installments are
// computed on demand from (code, total, base date) and never persisted, so the
// schedule can be re-previewed while the user edits a form.
type Installment struct {
	SequenceNumber int             `json:"sequence_number"`
	DueDate        time.Time       `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
}

type termSplit struct {
	percentages []int64
	offsetDays  []int
}

// The uneven final share of 33_33_34 absorbs the rounding remainder on
// purpose; the parser assigns the remainder to the last installment for every
// code, so the split sums to the total even when the percentages don't divide
// evenly.
var paymentTermSplits = map[PaymentTermsCode]termSplit{
	PaymentTermsContado: {percentages: []int64{100}, offsetDays: []int{0}},
	PaymentTerms30Dias:  {percentages: []int64{100}, offsetDays: []int{30}},
	PaymentTerms60Dias:  {percentages: []int64{100}, offsetDays: []int{60}},
	PaymentTerms90Dias:  {percentages: []int64{100}, offsetDays: []int{90}},
	PaymentTerms5050:    {percentages: []int64{50, 50}, offsetDays: []int{30, 60}},
	PaymentTerms333334:  {percentages: []int64{33, 33, 34}, offsetDays: []int{30, 60, 90}},
	PaymentTerms25x4:    {percentages: []int64{25, 25, 25, 25}, offsetDays: []int{30, 60, 90, 120}},
	// anticipo + saldo
	PaymentTerms4060: {percentages: []int64{40, 60}, offsetDays: []int{0, 30}},
}

// ParsePaymentTermsCode maps a raw form value to a known code.
func ParsePaymentTermsCode(raw string) (PaymentTermsCode, bool) {
	code := PaymentTermsCode(raw)
	_, ok := paymentTermSplits[code]
	return code, ok
}

// ParsePaymentTerms splits a document total into due-dated installments.
//
// Each installment is Round2(total × percentage) except the last, which is
// total − sum(previous) so the schedule reconciles to the cent regardless of
// how evenly the percentages divide. An unknown or empty code returns an
// empty schedule and no error: the caller did not request one. A total of
// zero or less is rejected.
func ParsePaymentTerms(code PaymentTermsCode, totalAmount decimal.Decimal, baseDate time.Time) ([]Installment, error) {
	split, ok := paymentTermSplits[code]
	if !ok {
		return nil, nil
	}
	if !totalAmount.IsPositive() {
		return nil, errInvalidAmount("payment terms "+string(code), totalAmount)
	}

	total := Round2(totalAmount)
	installments := make([]Installment, 0, len(split.percentages))
	allocated := decimal.Zero
	for i, pct := range split.percentages {
		var amount decimal.Decimal
		if i == len(split.percentages)-1 {
			// Never trust the last percentage's rounded product.
			amount = total.Sub(allocated)
		} else {
			amount = Round2(total.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)))
			allocated = allocated.Add(amount)
		}
		installments = append(installments, Installment{
			SequenceNumber: i + 1,
			DueDate:        baseDate.AddDate(0, 0, split.offsetDays[i]),
			Amount:         amount,
		})
	}
	return installments, nil
}

// PaymentTermsDueDate returns the final due date implied by a terms code, or
// nil when the code requests no schedule.
func PaymentTermsDueDate(code PaymentTermsCode, baseDate time.Time) *time.Time {
	split, ok := paymentTermSplits[code]
	if !ok {
		return nil
	}
	due := baseDate.AddDate(0, 0, split.offsetDays[len(split.offsetDays)-1])
	return &due
}
