package domain

import "time"

// Session is one device login. The primary key doubles as the session id
// carried in token claims. Deactivation is monotonic: nothing ever flips
// Active back to true; a new login allocates a fresh row instead.
type Session struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    string    `gorm:"type:uuid;index;not null" json:"account_id"`
	Device       string    `gorm:"size:512" json:"device"`
	IPAddress    string    `gorm:"size:64" json:"ip_address"`
	LoginAt      time.Time `json:"login_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Active       bool      `gorm:"index;not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
