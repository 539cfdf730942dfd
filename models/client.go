package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Client buys the firm's production (acopios, frigoríficos, exportadores);
// incomes reference it.
type Client struct {
	ID          int       `gorm:"primary_key" json:"id"`
	FirmId      string    `gorm:"index;not null" json:"firm_id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	TaxId       string    `gorm:"size:20" json:"tax_id"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	Notes       string    `gorm:"type:text" json:"notes"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name        string `json:"name" binding:"required"`
	TaxId       string `json:"tax_id"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewClient) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Client](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Client](ctx, firmId, "name", input.Name, id); err != nil {
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

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	client := Client{
		FirmId:      firmId,
		Name:        input.Name,
		TaxId:       input.TaxId,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		Notes:       input.Notes,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	client, err := utils.FetchModel[Client](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(client).Updates(map[string]interface{}{
		"Name":        input.Name,
		"TaxId":       input.TaxId,
		"ContactName": input.ContactName,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"Address":     input.Address,
		"Notes":       input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Client](ctx, firmId, id)
}

func ListClients(ctx context.Context) ([]*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Client](ctx, firmId)
}

func DeleteClient(ctx context.Context, id int) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	client, err := utils.FetchModel[Client](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Income](ctx, firmId, "client_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("client has incomes and cannot be deleted")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

// ClientOutstanding is the per-client receivable summary backing the report.
type ClientOutstanding struct {
	ClientId     int             `json:"client_id"`
	ClientName   string          `json:"client_name"`
	OpenInvoices int             `json:"open_invoices"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

func ListClientOutstanding(ctx context.Context) ([]*ClientOutstanding, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var rows []*ClientOutstanding
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Income{}).
		Select("incomes.client_id AS client_id, clients.name AS client_name, COUNT(*) AS open_invoices, SUM(incomes.balance) AS outstanding").
		Joins("JOIN clients ON clients.id = incomes.client_id").
		Where("incomes.firm_id = ? AND incomes.current_status IN ?", firmId,
			[]DocumentStatus{DocumentStatusConfirmed, DocumentStatusPartialPaid}).
		Group("incomes.client_id, clients.name").
		Order("outstanding desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
