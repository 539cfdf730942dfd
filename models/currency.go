package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
)

type Currency struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FirmId    string    `gorm:"index;not null" json:"firm_id" binding:"required"`
	Symbol    string    `gorm:"index;size:3;not null" json:"symbol" binding:"required"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCurrency struct {
	Symbol string `json:"symbol" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCurrency) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Currency](ctx, firmId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Currency](ctx, firmId, "name", input.Name, id); err != nil {
		return err
	}
	// symbol
	if err := utils.ValidateUnique[Currency](ctx, firmId, "symbol", input.Symbol, id); err != nil {
		return err
	}
	return nil
}

func CreateCurrency(ctx context.Context, input *NewCurrency) (*Currency, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	currency := Currency{
		FirmId:   firmId,
		Symbol:   input.Symbol,
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func UpdateCurrency(ctx context.Context, id int, input *NewCurrency) (*Currency, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	currency, err := utils.FetchModel[Currency](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(currency).Updates(map[string]interface{}{
		"Name":   input.Name,
		"Symbol": input.Symbol,
	}).Error
	if err != nil {
		return nil, err
	}
	return currency, nil
}

func GetCurrency(ctx context.Context, id int) (*Currency, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Currency](ctx, firmId, id)
}

func ListCurrencies(ctx context.Context) ([]*Currency, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Currency](ctx, firmId)
}
