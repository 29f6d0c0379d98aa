package models

import "time"

// WebhookEvent is an external event id that has already been handled.
// Rows are written once and only removed by retention pruning.
type WebhookEvent struct {
	EventID           string    `gorm:"primaryKey;size:128" json:"eventId"`
	EventType         string    `gorm:"size:64;not null;index" json:"eventType"`
	ProviderPaymentID string    `gorm:"size:64;index" json:"providerPaymentId"`
	ReceivedAt        time.Time `gorm:"not null;index" json:"receivedAt"`
}
