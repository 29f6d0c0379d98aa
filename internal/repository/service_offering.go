package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"practice-server/internal/models"
)

type ServiceOfferingRepository interface {
	Create(ctx context.Context, offering *models.ServiceOffering) error
	FindByID(ctx context.Context, id string) (*models.ServiceOffering, error)
}

type ServiceOfferingRepositoryImpl struct {
	db *gorm.DB
}

func NewServiceOfferingRepository(db *gorm.DB) *ServiceOfferingRepositoryImpl {
	return &ServiceOfferingRepositoryImpl{db: db}
}

func (r *ServiceOfferingRepositoryImpl) Create(ctx context.Context, offering *models.ServiceOffering) error {
	if err := conn(ctx, r.db).Create(offering).Error; err != nil {
		return fmt.Errorf("create service offering: %w", err)
	}
	return nil
}

func (r *ServiceOfferingRepositoryImpl) FindByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	var offering models.ServiceOffering
	if err := conn(ctx, r.db).First(&offering, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &offering, nil
}
