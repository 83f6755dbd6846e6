package domain

import "time"

// Account mirrors an identity held by the external identity provider.
// ExternalUID is the provider's subject id; ID is the gateway's own key and
// the one embedded in tokens. LockedUntil is set by the abuse tracker and
// never serialized to clients.
type Account struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalUID   string     `gorm:"size:128;uniqueIndex;not null" json:"external_uid"`
	Email         string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName      string     `gorm:"size:255" json:"full_name"`
	ProfilePic    string     `gorm:"size:1024" json:"profile_pic,omitempty"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	SignupAt      time.Time  `json:"signup_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	LockedUntil   *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
