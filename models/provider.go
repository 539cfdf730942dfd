package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Provider supplies inputs and services (proveedor); expenses reference it.
type Provider struct {
	ID          int       `gorm:"primary_key" json:"id"`
	FirmId      string    `gorm:"index;not null" json:"firm_id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	TaxId       string    `gorm:"size:20" json:"tax_id"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	Category    string    `gorm:"size:50" json:"category"`
	Notes       string    `gorm:"type:text" json:"notes"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProvider struct {
	Name        string `json:"name" binding:"required"`
	TaxId       string `json:"tax_id"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Category    string `json:"category"`
	Notes       string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProvider) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Provider](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Provider](ctx, firmId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateProvider(ctx context.Context, input *NewProvider) (*Provider, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	provider := Provider{
		FirmId:      firmId,
		Name:        input.Name,
		TaxId:       input.TaxId,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		Category:    input.Category,
		Notes:       input.Notes,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func UpdateProvider(ctx context.Context, id int, input *NewProvider) (*Provider, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	provider, err := utils.FetchModel[Provider](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(provider).Updates(map[string]interface{}{
		"Name":        input.Name,
		"TaxId":       input.TaxId,
		"ContactName": input.ContactName,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"Address":     input.Address,
		"Category":    input.Category,
		"Notes":       input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func GetProvider(ctx context.Context, id int) (*Provider, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Provider](ctx, firmId, id)
}

func ListProviders(ctx context.Context) ([]*Provider, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Provider](ctx, firmId)
}

func DeleteProvider(ctx context.Context, id int) (*Provider, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	provider, err := utils.FetchModel[Provider](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Expense](ctx, firmId, "provider_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("provider has expenses and cannot be deleted")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(provider).Error; err != nil {
		return nil, err
	}
	return provider, nil
}

// ProviderOutstanding is the per-provider debt summary backing the report.
type ProviderOutstanding struct {
	ProviderId   int             `json:"provider_id"`
	ProviderName string          `json:"provider_name"`
	OpenInvoices int             `json:"open_invoices"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

func ListProviderOutstanding(ctx context.Context) ([]*ProviderOutstanding, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var rows []*ProviderOutstanding
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Expense{}).
		Select("expenses.provider_id AS provider_id, providers.name AS provider_name, COUNT(*) AS open_invoices, SUM(expenses.balance) AS outstanding").
		Joins("JOIN providers ON providers.id = expenses.provider_id").
		Where("expenses.firm_id = ? AND expenses.current_status IN ?", firmId,
			[]DocumentStatus{DocumentStatusConfirmed, DocumentStatusPartialPaid}).
		Group("expenses.provider_id, providers.name").
		Order("outstanding desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
