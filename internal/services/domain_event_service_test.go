package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emrSocket/internal/errs"
	"emrSocket/internal/services"
	"emrSocket/internal/testutil"
)

func TestDomainEvents_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		routingKey string
		body       string
		wantEvent  string
		wantRoom   string
		wantScope  uint
	}{
		{"invoice to user", "invoice.paid", `{"hospitalId":2,"userId":8,"data":{"invoiceId":1}}`, "invoice:paid", "user-8", 2},
		{"invoice to hospital", "invoice.paid", `{"hospitalId":2,"data":{"invoiceId":1}}`, "invoice:paid", "hospital-2", 0},
		{"lab result to user", "lab.result.ready", `{"hospitalId":2,"userId":8,"data":{}}`, "lab:result:ready", "user-8", 2},
		{"prescription to pharmacists", "prescription.ready", `{"hospitalId":2,"data":{"rx":"A1"}}`, "prescription:ready", "role-pharmacist", 2},
		{"prescription to prescriber", "prescription.ready", `{"hospitalId":2,"userId":5,"data":{}}`, "prescription:ready", "user-5", 2},
		{"appointment change ignores user", "appointment.changed", `{"hospitalId":3,"userId":5,"data":{"appointmentId":4}}`, "appointment:updated", "hospital-3", 0},
		{"claim to billing", "claim.status.changed", `{"hospitalId":3,"userId":5,"data":{}}`, "claim:status:changed", "role-billing", 3},
		{"type overrides routing key", "emr.anything", `{"type":"invoice.paid","hospitalId":2}`, "invoice:paid", "hospital-2", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			emitter := &testutil.RecordingEmitter{}
			svc := services.NewDomainEventService(emitter, testutil.Logger())

			require.NoError(t, svc.Handle(context.Background(), tc.routingKey, []byte(tc.body)))

			emission, ok := emitter.Last()
			require.True(t, ok)
			assert.Equal(t, tc.wantEvent, emission.Event)
			assert.Equal(t, tc.wantRoom, emission.Target.Room)
			assert.Equal(t, tc.wantScope, emission.Target.HospitalScope)
		})
	}
}

func TestDomainEvents_PoisonMessages(t *testing.T) {
	emitter := &testutil.RecordingEmitter{}
	svc := services.NewDomainEventService(emitter, testutil.Logger())
	ctx := context.Background()

	err := svc.Handle(ctx, "invoice.paid", []byte(`{not json`))
	assert.ErrorIs(t, err, errs.ErrPoisonMessage)

	err = svc.Handle(ctx, "patient.created", []byte(`{"hospitalId":1}`))
	assert.ErrorIs(t, err, errs.ErrPoisonMessage)
	assert.ErrorIs(t, err, errs.ErrUnknownDomainEvent)

	err = svc.Handle(ctx, "invoice.paid", []byte(`{"data":{}}`))
	assert.ErrorIs(t, err, errs.ErrPoisonMessage)

	assert.Empty(t, emitter.All())
}

func TestDomainEvents_EmitFailureIsRetryable(t *testing.T) {
	boom := errors.New("bus down")
	svc := services.NewDomainEventService(&testutil.RecordingEmitter{Err: boom}, testutil.Logger())

	err := svc.Handle(context.Background(), "invoice.paid", []byte(`{"hospitalId":1}`))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errs.ErrPoisonMessage)
}
