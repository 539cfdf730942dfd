package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/shopspring/decimal"
)

type SoilSample struct {
	ID              int             `gorm:"primary_key" json:"id"`
	FirmId          string          `gorm:"index;not null" json:"firm_id"`
	PaddockId       int             `gorm:"index;not null" json:"paddock_id" binding:"required"`
	SampledDate     time.Time       `gorm:"index;not null" json:"sampled_date" binding:"required"`
	Lab             string          `gorm:"size:100" json:"lab"`
	Ph              decimal.Decimal `gorm:"type:decimal(4,2);default:null" json:"ph"`
	OrganicMatter   decimal.Decimal `gorm:"type:decimal(5,2);default:null" json:"organic_matter"`
	PhosphorusPpm   decimal.Decimal `gorm:"type:decimal(7,2);default:null" json:"phosphorus_ppm"`
	NitrogenPpm     decimal.Decimal `gorm:"type:decimal(7,2);default:null" json:"nitrogen_ppm"`
	Notes           string          `gorm:"type:text" json:"notes"`
	Documents       []*Document     `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSoilSample struct {
	PaddockId     int             `json:"paddock_id" binding:"required"`
	SampledDate   time.Time       `json:"sampled_date" binding:"required"`
	Lab           string          `json:"lab"`
	Ph            decimal.Decimal `json:"ph"`
	OrganicMatter decimal.Decimal `json:"organic_matter"`
	PhosphorusPpm decimal.Decimal `json:"phosphorus_ppm"`
	NitrogenPpm   decimal.Decimal `json:"nitrogen_ppm"`
	Notes         string          `json:"notes"`
	Documents     []*NewDocument  `json:"documents"`
}

func (input *NewSoilSample) validate(ctx context.Context, firmId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[SoilSample](ctx, firmId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Paddock](ctx, firmId, input.PaddockId); err != nil {
		return errors.New("paddock not found")
	}
	return nil
}

func CreateSoilSample(ctx context.Context, input *NewSoilSample) (*SoilSample, error) {

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	documents, err := mapNewDocuments(input.Documents, "soil_samples")
	if err != nil {
		return nil, err
	}

	sample := SoilSample{
		FirmId:        firmId,
		PaddockId:     input.PaddockId,
		SampledDate:   input.SampledDate,
		Lab:           input.Lab,
		Ph:            input.Ph,
		OrganicMatter: input.OrganicMatter,
		PhosphorusPpm: input.PhosphorusPpm,
		NitrogenPpm:   input.NitrogenPpm,
		Notes:         input.Notes,
		Documents:     documents,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&sample).Error; err != nil {
		return nil, err
	}
	return &sample, nil
}

func GetSoilSample(ctx context.Context, id int) (*SoilSample, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[SoilSample](ctx, firmId, id, "Documents")
}

func ListSoilSamples(ctx context.Context, paddockId int) ([]*SoilSample, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var samples []*SoilSample
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId)
	if paddockId > 0 {
		dbCtx = dbCtx.Where("paddock_id = ?", paddockId)
	}
	err := dbCtx.Order("sampled_date desc").Find(&samples).Error
	if err != nil {
		return nil, err
	}
	return samples, nil
}
