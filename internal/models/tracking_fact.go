package models

import "time"

const TrackingBookingConfirmed = "booking_confirmed"

// TrackingFact is an analytics fact about an appointment.
// (name, appointment) is unique so replays do not count twice.
type TrackingFact struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:64;not null;uniqueIndex:ux_tracking_facts_name_appointment,priority:1" json:"name"`
	AppointmentID string    `gorm:"size:36;not null;uniqueIndex:ux_tracking_facts_name_appointment,priority:2" json:"appointmentId"`
	ServiceID     string    `gorm:"size:36;index" json:"serviceId"`
	LeadID        *string   `gorm:"size:36" json:"leadId,omitempty"`
	OccurredAt    time.Time `gorm:"not null" json:"occurredAt"`
}
