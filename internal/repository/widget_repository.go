package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type WidgetRepository struct {
	db *gorm.DB
}

func NewWidgetRepository(db *gorm.DB) *WidgetRepository {
	return &WidgetRepository{db: db}
}

// GetActive resolves a widget by its public id within one tenant. Inactive
// widgets resolve to nil exactly like absent ones; callers cannot tell the
// difference and should not.
func (r *WidgetRepository) GetActive(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, error) {
	var widget model.WidgetConfig
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND public_id = ? AND active = ?", tenantID, publicID, true).
		First(&widget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get widget failed: %w", err)
	}
	return &widget, nil
}
