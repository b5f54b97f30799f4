package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/models"
)

type lastTouchRepository struct {
	db *gorm.DB
}

func NewLastTouchRepository(db *gorm.DB) LastTouchRepository {
	return &lastTouchRepository{db: db}
}

// FindByVisitor returns nil without error for an unknown visitor.
func (r *lastTouchRepository) FindByVisitor(ctx context.Context, visitorID string) (*models.LastTouch, error) {
	var touch models.LastTouch
	err := r.db.WithContext(ctx).Where("visitor_id = ?", visitorID).First(&touch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &touch, nil
}

func (r *lastTouchRepository) Replace(ctx context.Context, touch *models.LastTouch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("visitor_id = ?", touch.VisitorID).Delete(&models.LastTouch{}).Error; err != nil {
			return err
		}
		touch.ID = 0
		return tx.Create(touch).Error
	})
}

func (r *lastTouchRepository) PurgeSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_seen_at < ?", cutoff).Delete(&models.LastTouch{})
	return res.RowsAffected, res.Error
}

func (r *lastTouchRepository) FindLatestNonDirect(ctx context.Context, email, cpf string, since time.Time) (*models.LastTouch, error) {
	if email != "" {
		touch, err := r.findLatest(ctx, "email = ?", email, since)
		if err != nil || touch != nil {
			return touch, err
		}
	}
	if cpf != "" {
		return r.findLatest(ctx, "cpf = ?", cpf, since)
	}
	return nil, nil
}

func (r *lastTouchRepository) findLatest(ctx context.Context, identity string, value string, since time.Time) (*models.LastTouch, error) {
	var touch models.LastTouch
	err := r.db.WithContext(ctx).
		Where(identity, value).
		Where("is_direct = ? AND touched_at >= ?", false, since).
		Order("touched_at DESC").
		First(&touch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &touch, nil
}
