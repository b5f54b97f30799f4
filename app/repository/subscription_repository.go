package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/TrackFox/app/models"
)

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "platform_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"product_id",
			"status",
			"plan_name",
			"amount",
			"last_renewed_at",
			"next_charge_at",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	return reload(db, sub, "platform = ? AND platform_subscription_id = ?", sub.Platform, sub.PlatformSubscriptionID)
}
