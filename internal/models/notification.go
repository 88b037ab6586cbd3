package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is the durable row behind a notification:new push. A nil
// UserID addresses the whole hospital.
type Notification struct {
	gorm.Model
	HospitalID uint       `gorm:"not null;index" json:"hospital_id"`
	UserID     *uint      `gorm:"index" json:"user_id"`
	SenderID   uint       `json:"sender_id"`
	Title      string     `gorm:"not null" json:"title"`
	Message    string     `gorm:"not null" json:"message"`
	Type       string     `gorm:"not null;default:info" json:"type"`
	Link       string     `json:"link"`
	ReadAt     *time.Time `json:"read_at"`
}

type CreateNotificationRequestBody struct {
	TargetUserID *uint  `json:"targetUserId" binding:"omitempty,gt=0"`
	Title        string `json:"title" binding:"required,max=200"`
	Message      string `json:"message" binding:"required,max=2000"`
	Type         string `json:"type" binding:"omitempty,oneof=info success warning error"`
	Link         string `json:"link" binding:"omitempty,max=500"`
}

type NotificationResponse struct {
	Notification *Notification `json:"notification"`
	Delivered    bool          `json:"delivered"`
}
