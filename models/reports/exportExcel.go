package reports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
)

// ExportOutstandingBalancesExcel streams the payable and receivable aging
// reports as one workbook, a sheet per side.
func ExportOutstandingBalancesExcel(ctx context.Context, w http.ResponseWriter, currentDate string) error {

	f := excelize.NewFile()
	defer f.Close()

	payables, err := GetPayableAgingReport(ctx, currentDate)
	if err != nil {
		return err
	}
	receivables, err := GetReceivableAgingReport(ctx, currentDate)
	if err != nil {
		return err
	}

	if err := writeAgingSheet(f, "Payables", "Proveedor", payables); err != nil {
		return err
	}
	if err := writeAgingSheet(f, "Receivables", "Cliente", receivables); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=saldos_pendientes.xlsx")
	return f.Write(w)
}

func writeAgingSheet(f *excelize.File, sheetName string, counterpartyHeading string, rows []*OutstandingBalanceRow) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headings := []string{counterpartyHeading, "Moneda", "Facturas", "Total", "A vencer", "1-30", "31-60", "61+"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for i, row := range rows {
		rowNo := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), row.CounterpartyName)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(rowNo), row.CurrencySymbol)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), row.InvoiceCount)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), row.Total.InexactFloat64())
		f.SetCellValue(sheetName, "E"+fmt.Sprint(rowNo), row.Current.InexactFloat64())
		f.SetCellValue(sheetName, "F"+fmt.Sprint(rowNo), row.Overdue1to30.InexactFloat64())
		f.SetCellValue(sheetName, "G"+fmt.Sprint(rowNo), row.Overdue31to60.InexactFloat64())
		f.SetCellValue(sheetName, "H"+fmt.Sprint(rowNo), row.Overdue61plus.InexactFloat64())
	}
	return nil
}
