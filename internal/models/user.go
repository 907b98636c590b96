package models

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// Student is the portal account. The UID is issued at signup and is the key
// every quiz entity hangs off.
type Student struct {
	UID          string   `json:"uid" gorm:"primaryKey;size:64"`
	Email        string   `json:"email" gorm:"not null;uniqueIndex;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Name         string   `json:"name" gorm:"not null;size:255"`
	Year         int      `json:"year" gorm:"not null;index"`
	Department   string   `json:"department" gorm:"size:128"`
	Role         UserRole `json:"role" gorm:"not null;default:student;size:16"`
	PhotoURL     *string  `json:"photo_url" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Student) TableName() string { return "students" }
