package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practice-server/internal/models"
)

// TrackingRepository stores analytics facts
type TrackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// TrackBookingConfirmed records the booking-confirmed fact once per appointment
func (r *TrackingRepository) TrackBookingConfirmed(ctx context.Context, appointment *models.Appointment) error {
	fact := models.TrackingFact{
		Name:          models.TrackingBookingConfirmed,
		AppointmentID: appointment.ID,
		ServiceID:     appointment.ServiceID,
		LeadID:        appointment.LeadID,
		OccurredAt:    time.Now().UTC(),
	}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&fact).Error
	if err != nil && !IsDuplicateKey(err) {
		return fmt.Errorf("track booking confirmed for %s: %w", appointment.ID, err)
	}
	return nil
}

// CountFacts returns how many facts with name exist for the appointment
func (r *TrackingRepository) CountFacts(ctx context.Context, name, appointmentID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.TrackingFact{}).
		Where("name = ? AND appointment_id = ?", name, appointmentID).
		Count(&n).Error
	return n, err
}
