package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/google/uuid"
)

// Firm is the tenant: one agricultural establishment. Every other row carries
// its FirmId and the guard plugin scopes queries to it.
type Firm struct {
	ID             uuid.UUID `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	LegalName      string    `gorm:"size:150" json:"legal_name"`
	TaxId          string    `gorm:"size:20" json:"tax_id"`
	ContactName    string    `gorm:"size:100" json:"contact_name"`
	Email          string    `gorm:"size:255" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Address        string    `gorm:"type:text" json:"address"`
	Province       string    `gorm:"size:100" json:"province"`
	City           string    `gorm:"size:100" json:"city"`
	BaseCurrencyId int       `json:"base_currency_id"`
	Timezone       string    `gorm:"size:50" json:"timezone"`
	HectaresTotal  int       `gorm:"default:0" json:"hectares_total"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFirm struct {
	Name          string `json:"name" binding:"required"`
	LegalName     string `json:"legal_name"`
	TaxId         string `json:"tax_id"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email" binding:"required"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Province      string `json:"province"`
	City          string `json:"city"`
	Timezone      string `json:"timezone"`
	HectaresTotal int    `json:"hectares_total"`
}

func (firm *Firm) StoreRedis() error {
	return config.SetRedisObject("Firm:"+fmt.Sprint(firm.ID), firm, 0)
}

func (firm *Firm) RemoveRedis() error {
	return config.RemoveRedisKey("Firm:" + fmt.Sprint(firm.ID))
}

func CreateFirm(ctx context.Context, input *NewFirm) (*Firm, error) {

	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}

	firm := Firm{
		ID:            uuid.New(),
		Name:          input.Name,
		LegalName:     input.LegalName,
		TaxId:         input.TaxId,
		ContactName:   input.ContactName,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		Province:      input.Province,
		City:          input.City,
		Timezone:      input.Timezone,
		HectaresTotal: input.HectaresTotal,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	ctx = utils.SetSkipFirmScopeInContext(ctx, true)
	if err := db.WithContext(ctx).Create(&firm).Error; err != nil {
		return nil, err
	}
	_ = firm.StoreRedis()
	return &firm, nil
}

// GetFirmById reads through the redis cache; every request middleware hits
// this, so the DB only sees cache misses.
func GetFirmById(ctx context.Context, id string) (*Firm, error) {

	var firm Firm
	exists, err := config.GetRedisObject("Firm:"+id, &firm)
	if err == nil && exists {
		return &firm, nil
	}

	firmId, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("invalid firm id")
	}

	db := config.GetDB()
	ctx = utils.SetSkipFirmScopeInContext(ctx, true)
	if err := db.WithContext(ctx).First(&firm, "id = ?", firmId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = firm.StoreRedis()
	return &firm, nil
}

func UpdateFirm(ctx context.Context, id string, input *NewFirm) (*Firm, error) {

	firm, err := GetFirmById(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	db := config.GetDB()
	ctx = utils.SetSkipFirmScopeInContext(ctx, true)
	err = db.WithContext(ctx).Model(firm).Updates(map[string]interface{}{
		"Name":          input.Name,
		"LegalName":     input.LegalName,
		"TaxId":         input.TaxId,
		"ContactName":   input.ContactName,
		"Email":         input.Email,
		"Phone":         input.Phone,
		"Address":       input.Address,
		"Province":      input.Province,
		"City":          input.City,
		"Timezone":      input.Timezone,
		"HectaresTotal": input.HectaresTotal,
	}).Error
	if err != nil {
		return nil, err
	}
	_ = firm.RemoveRedis()
	return firm, nil
}
