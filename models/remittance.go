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

// Remittance is a delivery note (remito) for production shipped to a client,
// issued before the invoice; incomes may link back to it.
type Remittance struct {
	ID               int             `gorm:"primary_key" json:"id"`
	FirmId           string          `gorm:"index;not null" json:"firm_id"`
	ClientId         int             `gorm:"index;not null" json:"client_id" binding:"required"`
	RemittanceNumber string          `gorm:"size:50;not null" json:"remittance_number"`
	SequenceNo       decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	ShippedDate      time.Time       `gorm:"not null" json:"shipped_date" binding:"required"`
	Description      string          `gorm:"size:255" json:"description"`
	Quantity         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"quantity"`
	Unit             string          `gorm:"size:20" json:"unit"`
	Notes            string          `gorm:"type:text" json:"notes"`
	Documents        []*Document     `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRemittance struct {
	ClientId    int             `json:"client_id" binding:"required"`
	ShippedDate time.Time       `json:"shipped_date" binding:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Notes       string          `json:"notes"`
	Documents   []*NewDocument  `json:"documents"`
}

func (input *NewRemittance) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Remittance](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return errors.New("client not found")
	}
	return nil
}

func CreateRemittance(ctx context.Context, input *NewRemittance) (*Remittance, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	documents, err := mapNewDocuments(input.Documents, "remittances")
	if err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[Remittance](ctx, firmId)
	if err != nil {
		return nil, err
	}

	remittance := Remittance{
		FirmId:           firmId,
		ClientId:         input.ClientId,
		RemittanceNumber: fmt.Sprintf("R-%06d", seqNo),
		SequenceNo:       decimal.NewFromInt(seqNo),
		ShippedDate:      input.ShippedDate,
		Description:      input.Description,
		Quantity:         input.Quantity,
		Unit:             input.Unit,
		Notes:            input.Notes,
		Documents:        documents,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&remittance).Error; err != nil {
		return nil, err
	}
	return &remittance, nil
}

func GetRemittance(ctx context.Context, id int) (*Remittance, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Remittance](ctx, firmId, id, "Documents")
}

func ListRemittances(ctx context.Context) ([]*Remittance, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Remittance](ctx, firmId)
}

func DeleteRemittance(ctx context.Context, id int) (*Remittance, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	remittance, err := utils.FetchModel[Remittance](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Income](ctx, firmId, "remittance_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("remittance is invoiced and cannot be deleted")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(remittance).Error; err != nil {
		return nil, err
	}
	return remittance, nil
}
