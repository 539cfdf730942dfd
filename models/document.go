package models

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"gorm.io/gorm"
)

// Document is a stored attachment (invoice scan, receipt, lab report) hung off
// any firm-owned row through gorm's polymorphic association.
type Document struct {
	ID            int    `gorm:"primary_key" json:"id"`
	DocumentUrl   string `gorm:"size:500;not null" json:"document_url"`
	ReferenceType string `gorm:"size:50;index:idx_document_ref" json:"reference_type"`
	ReferenceID   int    `gorm:"index:idx_document_ref" json:"reference_id"`
}

type NewDocument struct {
	DocumentUrl string `json:"document_url" binding:"required"`
}

// extractObjectName pulls the bucket object key out of a stored url.
func extractObjectName(documentUrl string) string {
	u, err := url.Parse(documentUrl)
	if err != nil {
		return documentUrl
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return strings.TrimPrefix(u.Path, "/")
}

// mapNewDocuments builds the association slice for a create; gorm fills in
// ReferenceID once the parent row has an id.
func mapNewDocuments(input []*NewDocument, referenceType string) ([]*Document, error) {
	var documents []*Document
	for _, i := range input {
		documents = append(documents, &Document{
			DocumentUrl:   i.DocumentUrl,
			ReferenceType: referenceType,
		})
	}
	return documents, nil
}

// AttachDocument links an already-uploaded object to a row. The object must
// exist in the bucket first; uploads.go writes it before this is called.
func AttachDocument(ctx context.Context, referenceType string, referenceId int, input *NewDocument) (*Document, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := validateDocumentOwner(ctx, firmId, referenceType, referenceId); err != nil {
		return nil, err
	}
	if err := utils.CheckFileExistInGCS(ctx, extractObjectName(input.DocumentUrl)); err != nil {
		return nil, err
	}

	document := Document{
		DocumentUrl:   input.DocumentUrl,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&document).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

func DeleteDocument(ctx context.Context, id int) (*Document, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	var document Document
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&document, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := validateDocumentOwner(ctx, firmId, document.ReferenceType, document.ReferenceID); err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&document).Error
	})
	if err != nil {
		return nil, err
	}
	// Best effort: a dangling object is harmless, a dangling row is not.
	_ = utils.DeleteFileFromGCS(ctx, extractObjectName(document.DocumentUrl))
	return &document, nil
}

// validateDocumentOwner confirms the referenced row belongs to the firm.
// Documents carry no firm_id of their own; ownership flows from the parent.
func validateDocumentOwner(ctx context.Context, firmId string, referenceType string, referenceId int) error {
	allowedTables := map[string]bool{
		"expenses":             true,
		"incomes":              true,
		"payment_orders":       true,
		"purchase_orders":      true,
		"remittances":          true,
		"providers":            true,
		"clients":              true,
		"paddocks":             true,
		"soil_samples":         true,
		"rainfall_records":     true,
		"pasture_measurements": true,
	}
	if referenceType == "" || referenceId <= 0 || !allowedTables[referenceType] {
		return errors.New("unauthorized")
	}

	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Table(referenceType).
		Where("id = ? AND firm_id = ?", referenceId, firmId).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("unauthorized")
	}
	return nil
}
