package models

import (
	"log"

	"bitbucket.org/campodata/agroledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Firm{}, &Currency{},
		&Provider{}, &Client{}, &Personnel{},
		&Expense{}, &Income{}, &PaymentRecord{},
		&PaymentOrder{}, &PaymentOrderItem{},
		&FinancialAccount{}, &FinancialAccountDailyBalance{},
		&PurchaseOrder{}, &Remittance{},
		&Paddock{}, &RainfallRecord{}, &SoilSample{}, &PastureMeasurement{},
		&Alert{},
		&Document{}, &History{},
		&LedgerEventRecord{}, &IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
