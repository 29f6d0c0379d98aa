package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPendingPayment AppointmentStatus = "pending_payment"
	StatusPaid           AppointmentStatus = "paid"
	StatusConfirmed      AppointmentStatus = "confirmed"
	StatusCanceled       AppointmentStatus = "canceled"
	StatusRescheduled    AppointmentStatus = "rescheduled"
	StatusCompleted      AppointmentStatus = "completed"
)

// DeliveryFormat is how the session is held
type DeliveryFormat string

const (
	FormatOnline   DeliveryFormat = "online"
	FormatInPerson DeliveryFormat = "in_person"
)

// Appointment represents a booked session with a practitioner.
// Bookings are created in StatusPendingPayment by the booking flow and are
// moved to paid and confirmed only by the payment confirmation service.
type Appointment struct {
	BaseModel
	ServiceID      string            `gorm:"size:36;index;not null" json:"serviceId"`
	ClientID       *string           `gorm:"size:36;index" json:"clientId,omitempty"`
	LeadID         *string           `gorm:"size:36;index" json:"leadId,omitempty"`
	IdempotencyKey *string           `gorm:"size:255;uniqueIndex" json:"-"`
	StartsAt       time.Time         `json:"startsAt"`
	EndsAt         time.Time         `json:"endsAt"`
	Timezone       string            `gorm:"size:64;default:'UTC'" json:"timezone"`
	Format         DeliveryFormat    `gorm:"size:20;default:'online'" json:"format"`
	Status         AppointmentStatus `gorm:"size:20;index;default:'pending_payment'" json:"status"`
	SlotID         *string           `gorm:"size:36;index" json:"slotId,omitempty"`

	// Relations
	Client  *Client          `gorm:"foreignKey:ClientID" json:"-"`
	Service *ServiceOffering `gorm:"foreignKey:ServiceID" json:"-"`
}

// IsTerminal reports whether no flow of this service may move the appointment any further
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCanceled || a.Status == StatusCompleted
}

// AwaitsConfirmation reports whether a succeeded payment can still confirm the appointment
func (a *Appointment) AwaitsConfirmation() bool {
	return a.Status == StatusPendingPayment || a.Status == StatusPaid
}
