package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// PastureMeasurement tracks forage availability per paddock (kg dry matter/ha).
type PastureMeasurement struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FirmId       string          `gorm:"index;not null" json:"firm_id"`
	PaddockId    int             `gorm:"index;not null" json:"paddock_id" binding:"required"`
	MeasuredDate time.Time       `gorm:"index;not null" json:"measured_date" binding:"required"`
	KgDmPerHa    decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"kg_dm_per_ha"`
	GrowthRate   decimal.Decimal `gorm:"type:decimal(6,2);default:null" json:"growth_rate"`
	Species      string          `gorm:"size:100" json:"species"`
	Notes        string          `gorm:"size:255" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPastureMeasurement struct {
	PaddockId    int             `json:"paddock_id" binding:"required"`
	MeasuredDate time.Time       `json:"measured_date" binding:"required"`
	KgDmPerHa    decimal.Decimal `json:"kg_dm_per_ha" binding:"required"`
	GrowthRate   decimal.Decimal `json:"growth_rate"`
	Species      string          `json:"species"`
	Notes        string          `json:"notes"`
}

func (input *NewPastureMeasurement) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[PastureMeasurement](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Paddock](ctx, firmId, input.PaddockId); err != nil {
		return errors.New("paddock not found")
	}
	if input.KgDmPerHa.IsNegative() {
		return errors.New("kg dm/ha cannot be negative")
	}
	return nil
}

func CreatePastureMeasurement(ctx context.Context, input *NewPastureMeasurement) (*PastureMeasurement, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	measurement := PastureMeasurement{
		FirmId:       firmId,
		PaddockId:    input.PaddockId,
		MeasuredDate: input.MeasuredDate,
		KgDmPerHa:    input.KgDmPerHa,
		GrowthRate:   input.GrowthRate,
		Species:      input.Species,
		Notes:        input.Notes,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&measurement).Error; err != nil {
		return nil, err
	}
	return &measurement, nil
}

func ListPastureMeasurements(ctx context.Context, paddockId int) ([]*PastureMeasurement, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var measurements []*PastureMeasurement
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId)
	if paddockId > 0 {
		dbCtx = dbCtx.Where("paddock_id = ?", paddockId)
	}
	err := dbCtx.Order("measured_date desc").Find(&measurements).Error
	if err != nil {
		return nil, err
	}
	return measurements, nil
}

func DeletePastureMeasurement(ctx context.Context, id int) (*PastureMeasurement, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	measurement, err := utils.FetchModel[PastureMeasurement](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(measurement).Error; err != nil {
		return nil, err
	}
	return measurement, nil
}
