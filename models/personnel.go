package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Personnel struct {
	ID            int             `gorm:"primary_key" json:"id"`
	FirmId        string          `gorm:"index;not null" json:"firm_id"`
	FullName      string          `gorm:"index;size:100;not null" json:"full_name" binding:"required"`
	Role          string          `gorm:"size:50" json:"role"`
	TaxId         string          `gorm:"size:20" json:"tax_id"`
	Phone         string          `gorm:"size:20" json:"phone"`
	Email         string          `gorm:"size:255" json:"email"`
	MonthlySalary decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_salary"`
	StartDate     *time.Time      `gorm:"default:null" json:"start_date"`
	EndDate       *time.Time      `gorm:"default:null" json:"end_date"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPersonnel struct {
	FullName      string          `json:"full_name" binding:"required"`
	Role          string          `json:"role"`
	TaxId         string          `json:"tax_id"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
}

func (input *NewPersonnel) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Personnel](ctx, firmId, id); err != nil {
			return err
		}
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.MonthlySalary.IsNegative() {
		return errInvalidAmount("personnel "+input.FullName, input.MonthlySalary)
	}
	return nil
}

func CreatePersonnel(ctx context.Context, input *NewPersonnel) (*Personnel, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	person := Personnel{
		FirmId:        firmId,
		FullName:      input.FullName,
		Role:          input.Role,
		TaxId:         input.TaxId,
		Phone:         input.Phone,
		Email:         input.Email,
		MonthlySalary: Round2(input.MonthlySalary),
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		IsActive:      utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&person).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

func UpdatePersonnel(ctx context.Context, id int, input *NewPersonnel) (*Personnel, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	person, err := utils.FetchModel[Personnel](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(person).Updates(map[string]interface{}{
		"FullName":      input.FullName,
		"Role":          input.Role,
		"TaxId":         input.TaxId,
		"Phone":         input.Phone,
		"Email":         input.Email,
		"MonthlySalary": Round2(input.MonthlySalary),
		"StartDate":     input.StartDate,
		"EndDate":       input.EndDate,
	}).Error
	if err != nil {
		return nil, err
	}
	return person, nil
}

func GetPersonnel(ctx context.Context, id int) (*Personnel, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Personnel](ctx, firmId, id)
}

func ListPersonnel(ctx context.Context) ([]*Personnel, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Personnel](ctx, firmId)
}

func DeactivatePersonnel(ctx context.Context, id int, endDate time.Time) (*Personnel, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	person, err := utils.FetchModel[Personnel](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(person).Updates(map[string]interface{}{
		"IsActive": utils.NewFalse(),
		"EndDate":  endDate,
	}).Error
	if err != nil {
		return nil, err
	}
	return person, nil
}
