package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

type RainfallRecord struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FirmId       string          `gorm:"index;not null" json:"firm_id"`
	PaddockId    int             `gorm:"index;default:null" json:"paddock_id"`
	RecordedDate time.Time       `gorm:"index;not null" json:"recorded_date" binding:"required"`
	Millimeters  decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"millimeters"`
	Notes        string          `gorm:"size:255" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRainfallRecord struct {
	PaddockId    int             `json:"paddock_id"`
	RecordedDate time.Time       `json:"recorded_date" binding:"required"`
	Millimeters  decimal.Decimal `json:"millimeters" binding:"required"`
	Notes        string          `json:"notes"`
}

func (input *NewRainfallRecord) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[RainfallRecord](ctx, firmId, id); err != nil {
			return err
		}
	}
	if input.PaddockId > 0 {
		if err := utils.ValidateResourceId[Paddock](ctx, firmId, input.PaddockId); err != nil {
			return errors.New("paddock not found")
		}
	}
	if input.Millimeters.IsNegative() {
		return errors.New("millimeters cannot be negative")
	}
	return nil
}

func CreateRainfallRecord(ctx context.Context, input *NewRainfallRecord) (*RainfallRecord, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	record := RainfallRecord{
		FirmId:       firmId,
		PaddockId:    input.PaddockId,
		RecordedDate: input.RecordedDate,
		Millimeters:  input.Millimeters,
		Notes:        input.Notes,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateRainfallRecord(ctx context.Context, id int, input *NewRainfallRecord) (*RainfallRecord, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	record, err := utils.FetchModel[RainfallRecord](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"PaddockId":    input.PaddockId,
		"RecordedDate": input.RecordedDate,
		"Millimeters":  input.Millimeters,
		"Notes":        input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func DeleteRainfallRecord(ctx context.Context, id int) (*RainfallRecord, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	record, err := utils.FetchModel[RainfallRecord](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func ListRainfallRecords(ctx context.Context, from, to time.Time) ([]*RainfallRecord, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var records []*RainfallRecord
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("firm_id = ? AND recorded_date BETWEEN ? AND ?", firmId, from, to).
		Order("recorded_date asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MonthlyRainfall aggregates mm per calendar month for the dashboard chart.
type MonthlyRainfall struct {
	Month       string          `json:"month"`
	Millimeters decimal.Decimal `json:"millimeters"`
}

func SummarizeMonthlyRainfall(ctx context.Context, year int) ([]*MonthlyRainfall, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var rows []*MonthlyRainfall
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&RainfallRecord{}).
		Select("DATE_FORMAT(recorded_date, '%Y-%m') AS month, SUM(millimeters) AS millimeters").
		Where("firm_id = ? AND YEAR(recorded_date) = ?", firmId, year).
		Group("month").
		Order("month asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
