package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is a commitment to a provider ahead of the invoice; expenses
// may link back to it so committed vs invoiced spend can be compared.
type PurchaseOrder struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	FirmId        string              `gorm:"index;not null" json:"firm_id"`
	ProviderId    int                 `gorm:"index;not null" json:"provider_id" binding:"required"`
	OrderNumber   string              `gorm:"size:50;not null" json:"order_number"`
	SequenceNo    decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	OrderDate     time.Time           `gorm:"not null" json:"order_date" binding:"required"`
	CurrencyId    int                 `gorm:"not null" json:"currency_id" binding:"required"`
	TotalAmount   decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CurrentStatus PurchaseOrderStatus `gorm:"type:enum('Draft','Confirmed','Closed','Cancelled');default:Draft" json:"current_status"`
	Notes         string              `gorm:"type:text" json:"notes"`
	Documents     []*Document         `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	ProviderId  int             `json:"provider_id" binding:"required"`
	OrderDate   time.Time       `json:"order_date" binding:"required"`
	CurrencyId  int             `json:"currency_id" binding:"required"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	Notes       string          `json:"notes"`
	Documents   []*NewDocument  `json:"documents"`
}

func (po *PurchaseOrder) Reference() string {
	return fmt.Sprintf("purchase order %s (id=%d)", po.OrderNumber, po.ID)
}

func (input *NewPurchaseOrder) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[PurchaseOrder](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Provider](ctx, firmId, input.ProviderId); err != nil {
		return errors.New("provider not found")
	}
	if err := utils.ValidateResourceId[Currency](ctx, firmId, input.CurrencyId); err != nil {
		return errors.New("currency not found")
	}
	if !input.TotalAmount.IsPositive() {
		return errInvalidAmount("purchase order", input.TotalAmount)
	}
	return nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	documents, err := mapNewDocuments(input.Documents, "purchase_orders")
	if err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx, firmId)
	if err != nil {
		return nil, err
	}

	order := PurchaseOrder{
		FirmId:        firmId,
		ProviderId:    input.ProviderId,
		OrderNumber:   fmt.Sprintf("OC-%06d", seqNo),
		SequenceNo:    decimal.NewFromInt(seqNo),
		OrderDate:     input.OrderDate,
		CurrencyId:    input.CurrencyId,
		TotalAmount:   Round2(input.TotalAmount),
		CurrentStatus: PurchaseOrderStatusDraft,
		Notes:         input.Notes,
		Documents:     documents,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[PurchaseOrder](ctx, firmId, id, "Documents")
}

func ListPurchaseOrders(ctx context.Context) ([]*PurchaseOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[PurchaseOrder](ctx, firmId)
}

func TransitionPurchaseOrder(ctx context.Context, id int, status PurchaseOrderStatus) (*PurchaseOrder, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	order, err := utils.FetchModel[PurchaseOrder](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	legal := map[PurchaseOrderStatus][]PurchaseOrderStatus{
		PurchaseOrderStatusDraft:     {PurchaseOrderStatusConfirmed, PurchaseOrderStatusCancelled},
		PurchaseOrderStatusConfirmed: {PurchaseOrderStatusClosed, PurchaseOrderStatusCancelled},
	}
	allowed := false
	for _, next := range legal[order.CurrentStatus] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%s: cannot move from %q to %q: %w",
			order.Reference(), order.CurrentStatus, status, ErrInvalidStateTransition)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(order).Update("CurrentStatus", status).Error; err != nil {
		return nil, err
	}
	order.CurrentStatus = status
	return order, nil
}
