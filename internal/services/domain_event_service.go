package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
)

type domainRoute struct {
	event string
	// fallbackRole, when set, is used instead of the hospital room for
	// events without a user.
	fallbackRole string
	// roleOnly ignores the user and always addresses fallbackRole.
	roleOnly bool
	// hospitalOnly ignores the user and always addresses the hospital.
	hospitalOnly bool
}

var domainRoutes = map[string]domainRoute{
	"invoice.paid":         {event: enums.SOCKET_EVENT_INVOICE_PAID},
	"lab.result.ready":     {event: enums.SOCKET_EVENT_LAB_RESULT_READY},
	"prescription.ready":   {event: enums.SOCKET_EVENT_PRESCRIPTION_READY, fallbackRole: enums.ROLE_PHARMACIST},
	"appointment.changed":  {event: enums.SOCKET_EVENT_APPOINTMENT_UPDATED, hospitalOnly: true},
	"claim.status.changed": {event: enums.SOCKET_EVENT_CLAIM_STATUS_CHANGED, fallbackRole: enums.ROLE_BILLING, roleOnly: true},
}

// DomainEventService maps events published by other EMR services onto
// socket pushes.
type DomainEventService struct {
	emitter interfaces.RealtimeEmitter
	log     *logger.Logger
}

func NewDomainEventService(emitter interfaces.RealtimeEmitter, log *logger.Logger) *DomainEventService {
	return &DomainEventService{
		emitter: emitter,
		log:     log.With("component", "DomainEventService"),
	}
}

// Handle decodes and fans out one message. Errors wrapping
// errs.ErrPoisonMessage will never succeed on redelivery.
func (ds *DomainEventService) Handle(ctx context.Context, routingKey string, body []byte) error {
	var event models.DomainEvent
	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&event); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPoisonMessage, err)
	}
	if event.Type == "" {
		event.Type = routingKey
	}

	route, ok := domainRoutes[event.Type]
	if !ok {
		return fmt.Errorf("%w: %w: %s", errs.ErrPoisonMessage, errs.ErrUnknownDomainEvent, event.Type)
	}
	if event.HospitalID == 0 {
		return fmt.Errorf("%w: missing hospitalId", errs.ErrPoisonMessage)
	}

	target := ds.targetFor(route, event)
	payload := event.Data
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = json.RawMessage(`{}`)
	}

	if err := ds.emitter.Emit(ctx, target, route.event, payload); err != nil {
		return err
	}
	ds.log.Debug("domain event relayed", "type", event.Type, "event", route.event, "room", target.Room)
	return nil
}

func (ds *DomainEventService) targetFor(route domainRoute, event models.DomainEvent) realtime.Target {
	scope := event.HospitalID
	switch {
	case route.hospitalOnly:
		return realtime.HospitalTarget(scope)
	case route.roleOnly:
		return realtime.Target{Room: realtime.RoleRoom(route.fallbackRole), HospitalScope: scope}
	case event.UserID != nil && *event.UserID != 0:
		return realtime.Target{Room: realtime.UserRoom(*event.UserID), HospitalScope: scope}
	case route.fallbackRole != "":
		return realtime.Target{Room: realtime.RoleRoom(route.fallbackRole), HospitalScope: scope}
	}
	return realtime.HospitalTarget(scope)
}
