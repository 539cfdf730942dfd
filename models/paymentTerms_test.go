package models_test

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/campodata/agroledger_backend/models"
	"github.com/shopspring/decimal"
)

var termsBaseDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Every schedule must reconcile to the cent, whatever the total.
func TestParsePaymentTermsSumsToTotal(t *testing.T) {
	codes := []models.PaymentTermsCode{
		models.PaymentTermsContado,
		models.PaymentTerms30Dias,
		models.PaymentTerms60Dias,
		models.PaymentTerms90Dias,
		models.PaymentTerms5050,
		models.PaymentTerms333334,
		models.PaymentTerms25x4,
		models.PaymentTerms4060,
	}
	totals := []string{"0.01", "100", "99.99", "123456.78", "10.01"}

	for _, code := range codes {
		for _, total := range totals {
			installments, err := models.ParsePaymentTerms(code, dec(total), termsBaseDate)
			if err != nil {
				t.Fatalf("%s/%s: unexpected error: %v", code, total, err)
			}
			sum := decimal.Zero
			for _, inst := range installments {
				sum = sum.Add(inst.Amount)
			}
			if !sum.Equal(dec(total).Round(2)) {
				t.Errorf("%s/%s: installments sum to %s", code, total, sum)
			}
		}
	}
}

func TestParsePaymentTermsThirds(t *testing.T) {
	installments, err := models.ParsePaymentTerms(models.PaymentTerms333334, dec("100"), termsBaseDate)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"33", "33", "34"}
	if len(installments) != len(want) {
		t.Fatalf("got %d installments, want %d", len(installments), len(want))
	}
	for i, w := range want {
		if !installments[i].Amount.Equal(dec(w)) {
			t.Errorf("installment %d: got %s, want %s", i+1, installments[i].Amount, w)
		}
		if installments[i].SequenceNumber != i+1 {
			t.Errorf("installment %d: sequence number %d", i+1, installments[i].SequenceNumber)
		}
	}
}

// The odd cent lands on the first half; the remainder rule keeps the second
// half exact.
func TestParsePaymentTermsHalvesOddCent(t *testing.T) {
	installments, err := models.ParsePaymentTerms(models.PaymentTerms5050, dec("10.01"), termsBaseDate)
	if err != nil {
		t.Fatal(err)
	}
	if len(installments) != 2 {
		t.Fatalf("got %d installments", len(installments))
	}
	if !installments[0].Amount.Equal(dec("5.01")) || !installments[1].Amount.Equal(dec("5.00")) {
		t.Errorf("got %s / %s, want 5.01 / 5.00", installments[0].Amount, installments[1].Amount)
	}
}

func TestParsePaymentTermsDueDates(t *testing.T) {
	installments, err := models.ParsePaymentTerms(models.PaymentTerms90Dias, dec("100"), termsBaseDate)
	if err != nil {
		t.Fatal(err)
	}
	if len(installments) != 1 {
		t.Fatalf("got %d installments", len(installments))
	}
	want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if !installments[0].DueDate.Equal(want) {
		t.Errorf("due date %s, want %s", installments[0].DueDate, want)
	}

	installments, err = models.ParsePaymentTerms(models.PaymentTerms4060, dec("100"), termsBaseDate)
	if err != nil {
		t.Fatal(err)
	}
	if !installments[0].DueDate.Equal(termsBaseDate) {
		t.Errorf("anticipo due date %s, want base date", installments[0].DueDate)
	}
	if !installments[1].DueDate.Equal(termsBaseDate.AddDate(0, 0, 30)) {
		t.Errorf("saldo due date %s, want base+30", installments[1].DueDate)
	}
}

func TestParsePaymentTermsUnknownCode(t *testing.T) {
	installments, err := models.ParsePaymentTerms(models.PaymentTermsCode("fin_de_mes"), dec("100"), termsBaseDate)
	if err != nil {
		t.Fatalf("unknown code should not error: %v", err)
	}
	if installments != nil {
		t.Errorf("unknown code should return no schedule, got %v", installments)
	}

	if _, ok := models.ParsePaymentTermsCode("fin_de_mes"); ok {
		t.Error("fin_de_mes should not parse as a known code")
	}
	if _, ok := models.ParsePaymentTermsCode("30_dias"); !ok {
		t.Error("30_dias should parse")
	}
}

func TestParsePaymentTermsRejectsNonPositiveTotal(t *testing.T) {
	for _, total := range []string{"0", "-10"} {
		_, err := models.ParsePaymentTerms(models.PaymentTermsContado, dec(total), termsBaseDate)
		if !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("total %s: got %v, want ErrInvalidAmount", total, err)
		}
	}
}

func TestPaymentTermsDueDate(t *testing.T) {
	due := models.PaymentTermsDueDate(models.PaymentTerms60Dias, termsBaseDate)
	if due == nil {
		t.Fatal("expected a due date")
	}
	if !due.Equal(termsBaseDate.AddDate(0, 0, 60)) {
		t.Errorf("got %s, want base+60", due)
	}
	if models.PaymentTermsDueDate(models.PaymentTermsCode("nope"), termsBaseDate) != nil {
		t.Error("unknown code should have no due date")
	}
}
