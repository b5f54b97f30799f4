package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/TrackFox/app/models"
)

type rawEventRepository struct {
	db *gorm.DB
}

func NewRawEventRepository(db *gorm.DB) RawEventRepository {
	return &rawEventRepository{db: db}
}

func (r *rawEventRepository) InsertIfAbsent(ctx context.Context, event *models.RawEvent) (bool, *models.RawEvent, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, event, nil
	}

	stored, err := r.GetByHash(ctx, event.Hash)
	if err != nil {
		return false, nil, err
	}
	return false, stored, nil
}

func (r *rawEventRepository) GetByID(ctx context.Context, id uint) (*models.RawEvent, error) {
	var event models.RawEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *rawEventRepository) GetByHash(ctx context.Context, hash string) (*models.RawEvent, error) {
	var event models.RawEvent
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *rawEventRepository) MarkProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.RawEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *rawEventRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.RawEvent{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
}

func (r *rawEventRepository) ListUnprocessed(ctx context.Context, receivedBefore time.Time, maxAttempts, limit int) ([]models.RawEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.RawEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND received_at < ? AND attempts < ?", receivedBefore, maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *rawEventRepository) RecordError(ctx context.Context, eventError *models.EventError) error {
	if eventError == nil {
		return errors.New("nil event error")
	}
	return r.db.WithContext(ctx).Create(eventError).Error
}
