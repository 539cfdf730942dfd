package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"gorm.io/gorm"
)

// Alert is a deduplicated notification raised by the sweep rules. One pending
// alert per (firm, rule, reference) at a time; once resolved or dismissed the
// same rule may fire again for the same reference.
//
// DedupActive backs the unique index: it is true while the alert is pending
// and NULL afterwards. MySQL does not collide NULLs in unique indexes, so
// resolved alerts never block a new pending one.
type Alert struct {
	ID            int           `gorm:"primary_key" json:"id"`
	FirmId        string        `gorm:"size:64;not null;index:uniq_alert_dedup,unique" json:"firm_id"`
	RuleName      AlertRuleName `gorm:"size:50;not null;index:uniq_alert_dedup,unique" json:"rule_name"`
	ReferenceType string        `gorm:"size:50;not null;index:uniq_alert_dedup,unique" json:"reference_type"`
	ReferenceId   int           `gorm:"not null;index:uniq_alert_dedup,unique" json:"reference_id"`
	DedupActive   *bool         `gorm:"index:uniq_alert_dedup,unique" json:"-"`
	Priority      AlertPriority `gorm:"type:enum('low','medium','high');not null" json:"priority"`
	Status        AlertStatus   `gorm:"type:enum('Pending','Resolved','Dismissed');default:Pending;index" json:"status"`
	Message       string        `gorm:"size:500;not null" json:"message"`
	DueDate       *time.Time    `gorm:"default:null" json:"due_date"`
	ResolvedAt    *time.Time    `gorm:"default:null" json:"resolved_at"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// AlertDraft is what a rule evaluation produces before dedup.
type AlertDraft struct {
	RuleName      AlertRuleName
	ReferenceType string
	ReferenceId   int
	Priority      AlertPriority
	Message       string
	DueDate       *time.Time
}

// ShouldEmitAlert reports whether no pending alert already exists for the
// (rule, reference) pair. The unique index still backs this up under races.
func ShouldEmitAlert(ctx context.Context, firmId string, draft AlertDraft) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&Alert{}).
		Where("firm_id = ? AND rule_name = ? AND reference_type = ? AND reference_id = ? AND status = ?",
			firmId, draft.RuleName, draft.ReferenceType, draft.ReferenceId, AlertStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// EmitAlert inserts a pending alert unless one already exists. A duplicate-key
// race loses silently: the alert the user sees is the one that won.
func EmitAlert(ctx context.Context, firmId string, draft AlertDraft) (*Alert, error) {
	ok, err := ShouldEmitAlert(ctx, firmId, draft)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	alert := Alert{
		FirmId:        firmId,
		RuleName:      draft.RuleName,
		ReferenceType: draft.ReferenceType,
		ReferenceId:   draft.ReferenceId,
		DedupActive:   utils.NewTrue(),
		Priority:      draft.Priority,
		Status:        AlertStatusPending,
		Message:       draft.Message,
		DueDate:       draft.DueDate,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&alert).Error; err != nil {
			if isDuplicateKeyError(err) {
				alert.ID = 0
				return nil
			}
			return err
		}
		return PublishToLedger(ctx, tx, firmId, time.Now(), alert.ID, LedgerRefAlert, &alert, nil, LedgerEventActionCreate)
	})
	if err != nil {
		return nil, err
	}
	if alert.ID == 0 {
		return nil, nil
	}
	return &alert, nil
}

func ResolveAlert(ctx context.Context, id int) (*Alert, error) {
	return closeAlert(ctx, id, AlertStatusResolved)
}

func DismissAlert(ctx context.Context, id int) (*Alert, error) {
	return closeAlert(ctx, id, AlertStatusDismissed)
}

func closeAlert(ctx context.Context, id int, status AlertStatus) (*Alert, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	alert, err := utils.FetchModel[Alert](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != AlertStatusPending {
		return nil, errors.New("alert is not pending")
	}

	now := time.Now()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(alert).Updates(map[string]interface{}{
		"Status":      status,
		"DedupActive": gorm.Expr("NULL"),
		"ResolvedAt":  now,
	}).Error
	if err != nil {
		return nil, err
	}
	alert.Status = status
	alert.DedupActive = nil
	alert.ResolvedAt = &now
	return alert, nil
}

func ListPendingAlerts(ctx context.Context) ([]*Alert, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	var alerts []*Alert
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("firm_id = ? AND status = ?", firmId, AlertStatusPending).
		Order("priority desc, due_date asc").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ResolveDocumentAlerts closes every pending alert hanging off a reference,
// e.g. when the invoice it warned about gets fully paid or cancelled.
func ResolveDocumentAlerts(ctx context.Context, tx *gorm.DB, firmId string, referenceType string, referenceId int) error {
	now := time.Now()
	return tx.Model(&Alert{}).
		Where("firm_id = ? AND reference_type = ? AND reference_id = ? AND status = ?",
			firmId, referenceType, referenceId, AlertStatusPending).
		Updates(map[string]interface{}{
			"Status":      AlertStatusResolved,
			"DedupActive": gorm.Expr("NULL"),
			"ResolvedAt":  now,
		}).Error
}
