package errs

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidRequestBody = Error("invalid request body")
	ErrInvalidRequest     = Error("invalid request")
	ErrInvalidParams      = Error("invalid params")
	ErrInvalidPageOrSize  = Error("invalid page or size")
	ErrUnauthorized       = Error("unauthorized")
	ErrForbidden          = Error("forbidden")

	ErrUserNotFound    = Error("user not found")
	ErrWrongPassword   = Error("wrong password")
	ErrInvalidEmail    = Error("invalid email")
	ErrInvalidPassword = Error("invalid password")

	ErrMissingToken  = Error("missing token")
	ErrInvalidToken  = Error("invalid token")
	ErrInvalidClaims = Error("token claims are incomplete")
	ErrUnknownRole   = Error("unknown role")

	ErrUnknownEvent    = Error("unknown event")
	ErrInvalidPayload  = Error("invalid payload")
	ErrInvalidTarget   = Error("invalid target")
	ErrInvalidEvent    = Error("invalid event name")
	ErrClientNotNew    = Error("client already registered or disconnected")
	ErrBusNotStarted   = Error("realtime bus not started")
	ErrBusClosed       = Error("realtime bus closed")
	ErrEmitterNotReady = Error("realtime emitter not initialized")

	ErrNotificationNotFound = Error("notification not found")
	ErrReceiverNotFound     = Error("receiver not found in hospital")

	ErrNoFileUploaded            = Error("no file uploaded")
	ErrUnableToOpenUploadedFile  = Error("unable to open uploaded file")
	ErrUnableToUploadFile        = Error("unable to upload file")
	ErrFileStorageUnavailable    = Error("file storage unavailable")
	ErrUnsupportedAttachmentType = Error("unsupported attachment type")

	ErrUnknownDomainEvent = Error("unknown domain event")
	ErrPoisonMessage      = Error("poison message")
)
