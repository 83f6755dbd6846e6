package domain

import "time"

// FailedLogin aggregates failed attempts for one (identity, source address)
// pair. Identity is the lowercased email the caller claimed; AccountID is
// filled in when that email resolves to a known account. Rows only exist
// while unresolved: a successful login deletes every row for the identity.
type FailedLogin struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Identity      string    `gorm:"size:255;not null;uniqueIndex:idx_failed_logins_identity_addr,priority:1" json:"identity"`
	IPAddress     string    `gorm:"size:64;not null;uniqueIndex:idx_failed_logins_identity_addr,priority:2" json:"ip_address"`
	AccountID     *string   `gorm:"type:uuid;index" json:"account_id,omitempty"`
	Device        string    `gorm:"size:512" json:"device"`
	Reason        string    `gorm:"size:64" json:"reason"`
	AttemptCount  int       `gorm:"not null;default:1" json:"attempt_count"`
	LastAttemptAt time.Time `gorm:"index" json:"last_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
