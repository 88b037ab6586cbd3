package models

import "time"

type AppointmentUpdated struct {
	AppointmentUpdatePayload
	UserID    uint      `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type QueueUpdated struct {
	QueueUpdatePayload
	UserID    uint      `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type NotificationNew struct {
	NotificationSendPayload
	ID        uint      `json:"id,omitempty"`
	SenderID  uint      `json:"senderId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type UserStatusChanged struct {
	UserID    uint      `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessageNew struct {
	ChatMessagePayload
	ID        uint      `json:"id,omitempty"`
	From      uint      `json:"from"`
	Timestamp time.Time `json:"timestamp"`
}

type Announcement struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	From      uint      `json:"from"`
	Timestamp time.Time `json:"timestamp"`
}
