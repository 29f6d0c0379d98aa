// Package events defines the domain events this service emits and the
// transports that carry them.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"practice-server/internal/mq"
)

const RKAppointmentConfirmed = "appointment.confirmed"

// AppointmentConfirmed is published once an appointment is paid and confirmed
type AppointmentConfirmed struct {
	Event      string                   `json:"event"`   // "appointment.confirmed"
	Version    int                      `json:"version"` // 1
	OccurredAt string                   `json:"occurred_at"`
	Data       AppointmentConfirmedData `json:"data"`
}

type AppointmentConfirmedData struct {
	AppointmentID string    `json:"appointment_id"`
	ServiceID     string    `json:"service_id"`
	ClientID      string    `json:"client_id,omitempty"`
	LeadID        string    `json:"lead_id,omitempty"`
	PaymentID     string    `json:"payment_id,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Timezone      string    `json:"timezone"`
}

// NewAppointmentConfirmed stamps a version-1 event
func NewAppointmentConfirmed(data AppointmentConfirmedData, at time.Time) AppointmentConfirmed {
	return AppointmentConfirmed{
		Event:      RKAppointmentConfirmed,
		Version:    1,
		OccurredAt: at.UTC().Format(time.RFC3339),
		Data:       data,
	}
}

// MessageID is stable per appointment so consumers can dedupe replays
func (e AppointmentConfirmed) MessageID() string {
	return RKAppointmentConfirmed + ":" + e.Data.AppointmentID
}

// MQPublisher publishes events to RabbitMQ
type MQPublisher struct {
	pub *mq.Publisher
}

func NewMQPublisher(pub *mq.Publisher) *MQPublisher {
	return &MQPublisher{pub: pub}
}

func (p *MQPublisher) PublishAppointmentConfirmed(ctx context.Context, evt AppointmentConfirmed) error {
	return p.pub.PublishJSON(ctx, RKAppointmentConfirmed, evt.MessageID(), evt)
}

// LogPublisher writes events to the log; used when no broker is configured
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishAppointmentConfirmed(_ context.Context, evt AppointmentConfirmed) error {
	p.logger.Info("domain event",
		zap.String("event", evt.Event),
		zap.String("message_id", evt.MessageID()),
		zap.String("appointment_id", evt.Data.AppointmentID),
		zap.String("service_id", evt.Data.ServiceID),
		zap.Time("starts_at", evt.Data.StartsAt),
		zap.Time("ends_at", evt.Data.EndsAt),
	)
	return nil
}
