package model

import "time"

// Tenant is the isolation boundary: every document, chunk and chat session
// belongs to exactly one tenant. Tenants are provisioned by the surrounding
// dashboard application; this service only reads them.
type Tenant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	APIKeyHash string    `gorm:"size:255" json:"-"` // bcrypt hash for server-to-server uploads
	CreatedAt  time.Time `json:"created_at"`
}
