package msgs

const (
	MsgOperationSuccessful = "Operation successful"
	MsgOperationFailed     = "Operation failed"
	MsgYouMustLoginFirst   = "You must login first"
	MsgNotAllowed          = "You are not allowed to perform this operation"
	MsgNotificationSent    = "Notification sent"
	MsgMessageSent         = "Message sent"
	MsgBroadcastSent       = "Broadcast sent"
)
