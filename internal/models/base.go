package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN     string
	LogMode logger.LogLevel
}

// InitDB opens the MySQL connection and migrates the schema
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	logMode := config.LogMode
	if logMode == 0 {
		logMode = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate auto migrates the database models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Client{},
		&ServiceOffering{},
		&Appointment{},
		&Payment{},
		&WebhookEvent{},
		&TrackingFact{},
	)
}
