package model

import "time"

// ChatSession is one widget conversation. PublicID is the identifier handed
// to the widget (and emitted in the stream sentinel); the numeric ID stays
// internal. Sessions are append-only and never deleted by the core.
type ChatSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PublicID  string    `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	WidgetID  uint      `gorm:"not null;index" json:"widget_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

type ChatTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
