package models

import (
	"strings"
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID          int64      `json:"id" db:"id" gorm:"primaryKey" example:"1"`
	Username    string     `json:"username" db:"username" example:"maria.silva"`
	Email       string     `json:"email" db:"email" example:"maria@example.org"`
	Password    string     `json:"-" db:"password"`
	FirstName   string     `json:"firstName" db:"first_name" example:"Maria"`
	LastName    string     `json:"lastName" db:"last_name" example:"Silva"`
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"VOLUNTEER"`
	IsSuperuser bool       `json:"isSuperuser" db:"is_superuser"`
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// TableName sets the table used by gorm
func (User) TableName() string { return "users" }

// NormalizeEmail lower-cases and trims an e-mail address; e-mails are unique case-insensitively
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile holds the per-user settings created together with the user
type Profile struct {
	UserID      int64     `json:"userId" db:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Address     string    `json:"address" db:"address"`
	Preferences string    `json:"-" db:"preferences"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName sets the table used by gorm
func (Profile) TableName() string { return "profiles" }

// PreferenceList decodes the stored CSV of categories, skipping unknown values
func (p *Profile) PreferenceList() []Category {
	out := make([]Category, 0)
	for _, raw := range strings.Split(p.Preferences, ",") {
		c := Category(strings.TrimSpace(raw))
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// SetPreferences stores the categories as CSV, dropping duplicates
func (p *Profile) SetPreferences(categories []Category) {
	seen := make(map[Category]bool, len(categories))
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		parts = append(parts, string(c))
	}
	p.Preferences = strings.Join(parts, ",")
}

// RefreshToken is a long lived token exchanged for new access tokens
type RefreshToken struct {
	ID        int64     `db:"id" gorm:"primaryKey"`
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	Revoked   bool      `db:"revoked"`
	CreatedAt time.Time `db:"created_at"`
}

// TableName sets the table used by gorm
func (RefreshToken) TableName() string { return "refresh_tokens" }
