package models

import "github.com/shopspring/decimal"

// ServiceOffering is a bookable service with its price
type ServiceOffering struct {
	BaseModel
	Title           string          `gorm:"size:255;not null" json:"title"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	DurationMinutes int             `gorm:"not null;default:60" json:"durationMinutes"`
}
