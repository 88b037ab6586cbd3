package enums

// Events a connected client may submit.
const (
	SOCKET_EVENT_APPOINTMENT_UPDATE = "appointment:update"
	SOCKET_EVENT_QUEUE_UPDATE       = "queue:update"
	SOCKET_EVENT_NOTIFICATION_SEND  = "notification:send"
	SOCKET_EVENT_USER_STATUS        = "user:status"
	SOCKET_EVENT_CHAT_MESSAGE       = "chat:message"
)

// Events pushed to rooms.
const (
	SOCKET_EVENT_APPOINTMENT_UPDATED  = "appointment:updated"
	SOCKET_EVENT_QUEUE_UPDATED        = "queue:updated"
	SOCKET_EVENT_NOTIFICATION_NEW     = "notification:new"
	SOCKET_EVENT_USER_STATUS_CHANGED  = "user:status:changed"
	SOCKET_EVENT_CHAT_MESSAGE_NEW     = "chat:message:new"
	SOCKET_EVENT_ANNOUNCEMENT_NEW     = "announcement:new"
	SOCKET_EVENT_INVOICE_PAID         = "invoice:paid"
	SOCKET_EVENT_LAB_RESULT_READY     = "lab:result:ready"
	SOCKET_EVENT_PRESCRIPTION_READY   = "prescription:ready"
	SOCKET_EVENT_CLAIM_STATUS_CHANGED = "claim:status:changed"
	SOCKET_EVENT_ERROR                = "error"
)

const (
	USER_STATUS_ONLINE  = "online"
	USER_STATUS_AWAY    = "away"
	USER_STATUS_BUSY    = "busy"
	USER_STATUS_OFFLINE = "offline"
)
