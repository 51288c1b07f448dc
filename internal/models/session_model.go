package models

import (
	"time"

	"gorm.io/datatypes"
)

// Session is an audit trail of logins, not a credential. Nothing in token
// verification consults it.
type Session struct {
	ID        uint           `gorm:"primaryKey"`
	UUID      string         `gorm:"uniqueIndex;size:36"`
	UserID    uint           `gorm:"index;not null"`
	IPAddress string         `gorm:"size:45"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time
}
