package models

import "time"

// Inbound payload schemas, one per client event. Identity fields (userId,
// hospitalId, from, timestamp) are absent: they are rejected as
// unknown fields and filled in from the authenticated connection instead.

type AppointmentUpdatePayload struct {
	AppointmentID uint       `json:"appointmentId" validate:"required,gt=0"`
	Status        string     `json:"status,omitempty" validate:"omitempty,oneof=scheduled confirmed checked_in in_progress completed cancelled no_show"`
	PatientID     uint       `json:"patientId,omitempty"`
	DoctorID      uint       `json:"doctorId,omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
}

type QueueUpdatePayload struct {
	AppointmentID uint   `json:"appointmentId" validate:"required,gt=0"`
	QueueNumber   *int   `json:"queueNumber,omitempty" validate:"omitempty,gte=0"`
	Status        string `json:"status,omitempty" validate:"omitempty,oneof=waiting called in_consultation done skipped"`
	DoctorID      uint   `json:"doctorId,omitempty"`
}

type NotificationSendPayload struct {
	TargetUserID *uint  `json:"targetUserId,omitempty" validate:"omitempty,gt=0"`
	Title        string `json:"title" validate:"required,max=200"`
	Message      string `json:"message" validate:"required,max=2000"`
	Type         string `json:"type,omitempty" validate:"omitempty,oneof=info success warning error"`
	Link         string `json:"link,omitempty" validate:"omitempty,max=500"`
}

type UserStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=online away busy offline"`
}

type ChatMessagePayload struct {
	TargetUserID  *uint  `json:"targetUserId,omitempty" validate:"omitempty,gt=0"`
	Message       string `json:"message" validate:"required,max=4000"`
	AttachmentURL string `json:"attachmentUrl,omitempty" validate:"omitempty,url"`
}
