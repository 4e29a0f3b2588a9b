package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

// SessionRepository is the append-only conversation log. Turns are never
// updated or removed by the core; retention is someone else's problem.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByPublicIDAndTenantID(ctx context.Context, publicID string, tenantID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND tenant_id = ?", publicID, tenantID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) AppendTurn(ctx context.Context, turn *model.ChatTurn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("append chat turn failed: %w", err)
	}
	return nil
}

// ListRecentTurns returns the newest limit turns of a session in
// chronological order.
func (r *SessionRepository) ListRecentTurns(ctx context.Context, sessionID uint, limit int) ([]model.ChatTurn, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var newest []model.ChatTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&newest).Error
	if err != nil {
		return nil, fmt.Errorf("list chat turns failed: %w", err)
	}

	for i, j := 0, len(newest)-1; i < j; i, j = i+1, j-1 {
		newest[i], newest[j] = newest[j], newest[i]
	}
	return newest, nil
}
