package domain

import "time"

// LoginHistory is the append-only audit trail of successful logins.
type LoginHistory struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string    `gorm:"type:uuid;index;not null" json:"account_id"`
	SessionID string    `gorm:"type:uuid;uniqueIndex;not null" json:"session_id"`
	Device    string    `gorm:"size:512" json:"device"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	LoginAt   time.Time `gorm:"index" json:"login_at"`
}
