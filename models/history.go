package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"gorm.io/gorm"
)

// History records who did what to which row, with before/after snapshots.
type History struct {
	ID            int             `gorm:"primary_key" json:"id"`
	FirmId        string          `gorm:"index;not null" json:"firm_id"`
	Action        string          `gorm:"size:50;not null" json:"action"`
	ReferenceId   int             `gorm:"not null" json:"reference_id"`
	ReferenceType string          `gorm:"size:50;not null;index" json:"reference_type"`
	OldObj        json.RawMessage `gorm:"type:json;default:null" json:"old_obj"`
	NewObj        json.RawMessage `gorm:"type:json;default:null" json:"new_obj"`
	Remark        string          `gorm:"size:255;default:null" json:"remark"`
	UserId        int             `gorm:"default:null" json:"user_id"`
	UserName      string          `gorm:"size:100;default:null" json:"user_name"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory writes an audit row inside the caller's transaction. The firm
// id is taken from the tx statement context so the guard plugin scopes it.
func createHistory(tx *gorm.DB, action string, refId int, refType string, oldObj interface{}, newObj interface{}, remark string) error {
	ctx := tx.Statement.Context
	firmId, _ := utils.GetFirmIdFromContext(ctx)

	var oldInByte, newInByte json.RawMessage
	var err error
	if oldObj != nil {
		oldInByte, err = json.Marshal(oldObj)
		if err != nil {
			return err
		}
	}
	if newObj != nil {
		newInByte, err = json.Marshal(newObj)
		if err != nil {
			return err
		}
	}

	history := History{
		FirmId:        firmId,
		Action:        action,
		ReferenceId:   refId,
		ReferenceType: refType,
		OldObj:        oldInByte,
		NewObj:        newInByte,
		Remark:        remark,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		history.UserId = userId
	}
	if userName, ok := utils.GetUserNameFromContext(ctx); ok {
		history.UserName = userName
	}
	return tx.Create(&history).Error
}

func ListHistory(ctx context.Context, refType string, refId int) ([]*History, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var histories []*History
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("firm_id = ? AND reference_type = ? AND reference_id = ?", firmId, refType, refId).
		Order("created_at desc").
		Find(&histories).Error
	if err != nil {
		return nil, err
	}
	return histories, nil
}
