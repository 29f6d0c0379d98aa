package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practice-server/internal/models"
)

type WebhookEventRepository interface {
	Record(ctx context.Context, event *models.WebhookEvent) (bool, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type WebhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepositoryImpl {
	return &WebhookEventRepositoryImpl{db: db}
}

// Record inserts the event id into the ledger. It reports false when the id
// was already there; the unique primary key decides between racing callers.
func (r *WebhookEventRepositoryImpl) Record(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	res := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		if IsDuplicateKey(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("record webhook event %s: %w", event.EventID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PruneBefore deletes ledger entries received before cutoff
func (r *WebhookEventRepositoryImpl) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := conn(ctx, r.db).Where("received_at < ?", cutoff).Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune webhook events: %w", res.Error)
	}
	return res.RowsAffected, nil
}
