package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"practice-server/internal/models"
)

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type ClientRepositoryImpl struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepositoryImpl {
	return &ClientRepositoryImpl{db: db}
}

func (r *ClientRepositoryImpl) Create(ctx context.Context, client *models.Client) error {
	if err := conn(ctx, r.db).Create(client).Error; err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("create client: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (r *ClientRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := conn(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}
