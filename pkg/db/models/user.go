package models

import "time"

// User represents one registered gratitude participant.
//
// ChatIdentity is the opaque messaging-platform identifier. It stays nil until
// the user's first locale-bearing interaction and is deliberately not unique:
// rows migrated from name-only registrations share a nil value until claimed.
type User struct {
	PkID          int64     `gorm:"column:pk_id;primaryKey;autoIncrement"`
	ChatIdentity  *string   `gorm:"column:user_id;index"`
	DisplayName   string    `gorm:"column:name;not null"`
	AccountHandle string    `gorm:"column:username;not null"`
	Locale        *string   `gorm:"column:locale"`
	CreatedAt     time.Time `gorm:"column:created_date"`
	UpdatedAt     time.Time `gorm:"column:updated_date"`
}

// TableName keeps the legacy singular table name.
func (User) TableName() string { return "user" }
