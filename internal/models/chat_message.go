package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatMessage is a persisted chat line. A nil ReceiverID means the message
// was posted to the hospital-wide channel.
type ChatMessage struct {
	gorm.Model
	HospitalID    uint       `gorm:"not null;index" json:"hospital_id"`
	SenderID      uint       `gorm:"not null;index" json:"sender_id"`
	ReceiverID    *uint      `gorm:"index" json:"receiver_id"`
	Content       string     `gorm:"not null" json:"content"`
	AttachmentURL string     `json:"attachment_url"`
	SeenAt        *time.Time `json:"seen_at"`
}

type SendChatMessageRequestBody struct {
	TargetUserID  *uint  `json:"targetUserId" binding:"omitempty,gt=0"`
	Message       string `json:"message" binding:"required,max=4000"`
	AttachmentURL string `json:"attachmentUrl" binding:"omitempty,url"`
}

type ChatMessageResponse struct {
	Message   *ChatMessage `json:"message"`
	Delivered bool         `json:"delivered"`
}

type BroadcastRequestBody struct {
	HospitalID uint   `json:"hospitalId"`
	Role       string `json:"role"`
	Title      string `json:"title" binding:"required,max=200"`
	Message    string `json:"message" binding:"required,max=2000"`
}
