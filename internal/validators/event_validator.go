package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	socketModels "emrSocket/internal/models/socket"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ValidationIssue struct{ Field, Reason string }

// ValidationError lists every field that failed. It matches
// errs.ErrInvalidPayload with errors.Is.
type ValidationError struct {
	Event  string
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return errs.ErrInvalidPayload.Error()
	}
	return fmt.Sprintf("%s: %s", errs.ErrInvalidPayload, strings.Join(e.Strings(), "; "))
}

func (e *ValidationError) Is(target error) bool { return target == errs.ErrInvalidPayload }

func (e *ValidationError) Strings() []string {
	out := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Field+" "+issue.Reason)
	}
	return out
}

var schemas = map[string]func() any{
	enums.SOCKET_EVENT_APPOINTMENT_UPDATE: func() any { return &socketModels.AppointmentUpdatePayload{} },
	enums.SOCKET_EVENT_QUEUE_UPDATE:       func() any { return &socketModels.QueueUpdatePayload{} },
	enums.SOCKET_EVENT_NOTIFICATION_SEND:  func() any { return &socketModels.NotificationSendPayload{} },
	enums.SOCKET_EVENT_USER_STATUS:        func() any { return &socketModels.UserStatusPayload{} },
	enums.SOCKET_EVENT_CHAT_MESSAGE:       func() any { return &socketModels.ChatMessagePayload{} },
}

// DecodeSocketEvent turns a raw client frame into the typed payload of its
// event. Unknown events, unknown fields, trailing data and tag violations are
// all rejected.
func DecodeSocketEvent(event socketModels.SocketEvent) (any, error) {
	newPayload, ok := schemas[event.Event]
	if !ok {
		return nil, errs.ErrUnknownEvent
	}
	if len(bytes.TrimSpace(event.Payload)) == 0 {
		return nil, &ValidationError{Event: event.Event, Issues: []ValidationIssue{{Field: "payload", Reason: "is required"}}}
	}

	payload := newPayload()
	decoder := json.NewDecoder(bytes.NewReader(event.Payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return nil, &ValidationError{Event: event.Event, Issues: []ValidationIssue{{Field: "payload", Reason: decodeReason(err)}}}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Event: event.Event, Issues: []ValidationIssue{{Field: "payload", Reason: "has trailing data"}}}
	}

	if err := validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
		}
		verr := &ValidationError{Event: event.Event}
		for _, fe := range fieldErrs {
			verr.Issues = append(verr.Issues, ValidationIssue{Field: fe.Field(), Reason: tagReason(fe)})
		}
		return nil, verr
	}
	return payload, nil
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	}
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field") {
		return strings.TrimPrefix(msg, "json: ")
	}
	return "is not a valid JSON object"
}

func tagReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "failed " + fe.Tag()
}
