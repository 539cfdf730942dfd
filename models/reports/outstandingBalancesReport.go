package reports

import (
	"context"
	"errors"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// OutstandingBalanceRow is one counterparty line of the aging report. Buckets
// follow the usual AR/AP cut: not yet due, 1-30, 31-60, 61+ days overdue.
type OutstandingBalanceRow struct {
	CounterpartyId   int             `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	CurrencySymbol   string          `json:"currency_symbol"`
	InvoiceCount     int             `json:"invoice_count"`
	Total            decimal.Decimal `json:"total"`
	Current          decimal.Decimal `json:"current"`
	Overdue1to30     decimal.Decimal `json:"overdue_1_to_30"`
	Overdue31to60    decimal.Decimal `json:"overdue_31_to_60"`
	Overdue61plus    decimal.Decimal `json:"overdue_61_plus"`
}

const payableAgingSQL = `
SELECT
    e.provider_id AS counterparty_id,
    providers.name AS counterparty_name,
    currencies.symbol AS currency_symbol,
    COUNT(*) AS invoice_count,
    SUM(e.balance) AS total,
    SUM(CASE WHEN DATEDIFF(@currentDate, e.due_date) <= 0 THEN e.balance ELSE 0 END) AS current,
    SUM(CASE WHEN DATEDIFF(@currentDate, e.due_date) BETWEEN 1 AND 30 THEN e.balance ELSE 0 END) AS overdue_1_to_30,
    SUM(CASE WHEN DATEDIFF(@currentDate, e.due_date) BETWEEN 31 AND 60 THEN e.balance ELSE 0 END) AS overdue_31_to_60,
    SUM(CASE WHEN DATEDIFF(@currentDate, e.due_date) > 60 THEN e.balance ELSE 0 END) AS overdue_61_plus
FROM
    expenses e
    LEFT JOIN providers ON providers.id = e.provider_id
    LEFT JOIN currencies ON currencies.id = e.currency_id
WHERE
    e.firm_id = @firmId
    AND e.current_status IN ('Confirmed', 'Partial Paid')
GROUP BY
    e.provider_id, providers.name, currencies.symbol
ORDER BY
    total DESC
`

const receivableAgingSQL = `
SELECT
    i.client_id AS counterparty_id,
    clients.name AS counterparty_name,
    currencies.symbol AS currency_symbol,
    COUNT(*) AS invoice_count,
    SUM(i.balance) AS total,
    SUM(CASE WHEN DATEDIFF(@currentDate, i.due_date) <= 0 THEN i.balance ELSE 0 END) AS current,
    SUM(CASE WHEN DATEDIFF(@currentDate, i.due_date) BETWEEN 1 AND 30 THEN i.balance ELSE 0 END) AS overdue_1_to_30,
    SUM(CASE WHEN DATEDIFF(@currentDate, i.due_date) BETWEEN 31 AND 60 THEN i.balance ELSE 0 END) AS overdue_31_to_60,
    SUM(CASE WHEN DATEDIFF(@currentDate, i.due_date) > 60 THEN i.balance ELSE 0 END) AS overdue_61_plus
FROM
    incomes i
    LEFT JOIN clients ON clients.id = i.client_id
    LEFT JOIN currencies ON currencies.id = i.currency_id
WHERE
    i.firm_id = @firmId
    AND i.current_status IN ('Confirmed', 'Partial Paid')
GROUP BY
    i.client_id, clients.name, currencies.symbol
ORDER BY
    total DESC
`

// GetPayableAgingReport buckets open provider invoices by days overdue.
func GetPayableAgingReport(ctx context.Context, currentDate string) ([]*OutstandingBalanceRow, error) {
	return runAgingReport(ctx, payableAgingSQL, currentDate)
}

// GetReceivableAgingReport buckets open client invoices by days overdue.
func GetReceivableAgingReport(ctx context.Context, currentDate string) ([]*OutstandingBalanceRow, error) {
	return runAgingReport(ctx, receivableAgingSQL, currentDate)
}

func runAgingReport(ctx context.Context, sql string, currentDate string) ([]*OutstandingBalanceRow, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	var results []*OutstandingBalanceRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"firmId":      firmId,
		"currentDate": currentDate,
	}).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CashPositionRow is one account line of the cash position report.
type CashPositionRow struct {
	AccountId      int             `json:"account_id"`
	AccountName    string          `json:"account_name"`
	AccountType    string          `json:"account_type"`
	CurrencySymbol string          `json:"currency_symbol"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

func GetCashPositionReport(ctx context.Context) ([]*CashPositionRow, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	var results []*CashPositionRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(`
SELECT
    fa.id AS account_id,
    fa.account_name,
    fa.account_type,
    currencies.symbol AS currency_symbol,
    fa.current_balance
FROM
    financial_accounts fa
    LEFT JOIN currencies ON currencies.id = fa.currency_id
WHERE
    fa.firm_id = @firmId
    AND fa.is_active = 1
ORDER BY
    fa.account_type, fa.account_name
`, map[string]interface{}{"firmId": firmId}).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
