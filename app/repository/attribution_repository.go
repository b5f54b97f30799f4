package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/TrackFox/app/models"
)

type attributionRepository struct {
	db *gorm.DB
}

func NewAttributionRepository(db *gorm.DB) AttributionRepository {
	return &attributionRepository{db: db}
}

// FindByOrderID returns nil without error when the order is unattributed.
func (r *attributionRepository) FindByOrderID(ctx context.Context, orderID uint) (*models.Attribution, error) {
	var attribution models.Attribution
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&attribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attribution, nil
}

func (r *attributionRepository) Upsert(ctx context.Context, attribution *models.Attribution) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source",
			"utm_source",
			"utm_medium",
			"utm_campaign",
			"utm_content",
			"utm_term",
			"fbclid",
			"gclid",
			"first_touch_at",
			"last_touch_at",
			"updated_at",
		}),
	}).Create(attribution).Error; err != nil {
		return err
	}

	return reload(db, attribution, "order_id = ?", attribution.OrderID)
}
