package models

import (
	"time"

	"gorm.io/gorm"
)

// StaffUser is a hospital account able to open a realtime connection.
type StaffUser struct {
	gorm.Model
	HospitalID   uint       `gorm:"not null;index" json:"hospital_id"`
	FirstName    string     `gorm:"not null" json:"first_name"`
	LastName     string     `gorm:"not null" json:"last_name"`
	Email        string     `gorm:"unique;not null" json:"email"`
	Role         string     `gorm:"not null" json:"role"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsOnline     bool       `gorm:"default:false" json:"is_online"`
	LastSeen     *time.Time `json:"last_seen"`
}

func (StaffUser) TableName() string { return "staff_users" }

type StaffUserResponse struct {
	ID         uint       `json:"id"`
	HospitalID uint       `json:"hospital_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       string     `json:"role"`
	IsOnline   bool       `json:"is_online"`
	LastSeen   *time.Time `json:"last_seen"`
}

func (user *StaffUser) ToResponse() *StaffUserResponse {
	return &StaffUserResponse{
		ID:         user.ID,
		HospitalID: user.HospitalID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       user.Role,
		IsOnline:   user.IsOnline,
		LastSeen:   user.LastSeen,
	}
}

type LoginRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *StaffUserResponse `json:"user"`
	Token string             `json:"token"`
}
