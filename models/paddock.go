package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Paddock is a lot/potrero; field records (rainfall, soil, pasture) hang off it.
type Paddock struct {
	ID         int             `gorm:"primary_key" json:"id"`
	FirmId     string          `gorm:"index;not null" json:"firm_id"`
	Name       string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Hectares   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"hectares"`
	CurrentUse string          `gorm:"size:50" json:"current_use"`
	Notes      string          `gorm:"type:text" json:"notes"`
	IsActive   *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaddock struct {
	Name       string          `json:"name" binding:"required"`
	Hectares   decimal.Decimal `json:"hectares"`
	CurrentUse string          `json:"current_use"`
	Notes      string          `json:"notes"`
}

func (input *NewPaddock) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Paddock](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Paddock](ctx, firmId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Hectares.IsNegative() {
		return errors.New("hectares cannot be negative")
	}
	return nil
}

func CreatePaddock(ctx context.Context, input *NewPaddock) (*Paddock, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	paddock := Paddock{
		FirmId:     firmId,
		Name:       input.Name,
		Hectares:   input.Hectares,
		CurrentUse: input.CurrentUse,
		Notes:      input.Notes,
		IsActive:   utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&paddock).Error; err != nil {
		return nil, err
	}
	return &paddock, nil
}

func UpdatePaddock(ctx context.Context, id int, input *NewPaddock) (*Paddock, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	paddock, err := utils.FetchModel[Paddock](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(paddock).Updates(map[string]interface{}{
		"Name":       input.Name,
		"Hectares":   input.Hectares,
		"CurrentUse": input.CurrentUse,
		"Notes":      input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return paddock, nil
}

func GetPaddock(ctx context.Context, id int) (*Paddock, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Paddock](ctx, firmId, id)
}

func ListPaddocks(ctx context.Context) ([]*Paddock, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Paddock](ctx, firmId)
}
