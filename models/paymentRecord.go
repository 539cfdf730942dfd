package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// PaymentRecord is the append-only audit trail of every payment/collection.
// There are deliberately no update or delete functions: a wrong payment is
// corrected by cancelling and re-registering the document, never by editing
// history.
type PaymentRecord struct {
	ID              int             `gorm:"primary_key" json:"id"`
	FirmId          string          `gorm:"index;not null" json:"firm_id"`
	DocumentType    DocumentKind    `gorm:"size:2;not null;index:idx_payment_doc" json:"document_type"`
	DocumentId      int             `gorm:"not null;index:idx_payment_doc" json:"document_id"`
	PaymentOrderId  int             `gorm:"index;default:null" json:"payment_order_id"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method          PaymentMethod   `gorm:"type:enum('transfer','cash','check','card','other');not null" json:"method"`
	ReferenceNumber string          `gorm:"size:100;default:null" json:"reference_number"`
	AccountId       int             `gorm:"index;default:null" json:"account_id"`
	BalanceBefore   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_before"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetPaymentRecord(ctx context.Context, id int) (*PaymentRecord, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[PaymentRecord](ctx, firmId, id)
}

// ListDocumentPayments returns the trail for one document, oldest first, so
// the balance_before/balance_after chain reads top to bottom.
func ListDocumentPayments(ctx context.Context, kind DocumentKind, documentId int) ([]*PaymentRecord, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var records []*PaymentRecord
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("firm_id = ? AND document_type = ? AND document_id = ?", firmId, kind, documentId).
		Order("payment_date asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
