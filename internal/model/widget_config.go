package model

import "time"

// WidgetConfig is the per-tenant embeddable widget definition. It is owned
// by the dashboard application; the chat core reads it by
// (tenant id, public id, active) and injects SystemPrompt into every turn.
type WidgetConfig struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"not null;index" json:"tenant_id"`
	PublicID       string    `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	SystemPrompt   string    `gorm:"type:text" json:"-"`
	WelcomeMessage string    `gorm:"size:512" json:"welcome_message"`
	Placeholder    string    `gorm:"size:256" json:"placeholder"`
	PrimaryColor   string    `gorm:"size:16" json:"primary_color"`
	Active         bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
