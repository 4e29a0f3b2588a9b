package repository

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// MarkFailed records the terminal failed state for an ingestion attempt.
// Reason is the human-readable cause shown in the dashboard, not raw
// provider output.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	reason = truncateReason(reason)
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.DocumentStatusFailed,
			"fail_reason": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("mark document failed failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByIDAndTenantID(ctx context.Context, id, tenantID uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByTenantID(ctx context.Context, tenantID uint) ([]model.Document, error) {
	var list []model.Document
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// truncateReason caps a fail reason at 250 bytes without splitting a rune,
// so the stored value stays valid UTF-8.
func truncateReason(reason string) string {
	if len(reason) <= 250 {
		return reason
	}
	cut := 250
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
