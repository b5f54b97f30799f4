package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/TrackFox/app/models"
)

// OrderUpsertColumns are overwritten when an order event arrives again.
var OrderUpsertColumns = []string{
	"customer_id",
	"status",
	"amount",
	"fee",
	"currency",
	"payment_method",
	"installments",
	"ordered_at",
	"paid_at",
	"last_status_at",
	"updated_at",
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Upsert(ctx context.Context, order *models.Order, updateColumns []string) error {
	if len(updateColumns) == 0 {
		updateColumns = OrderUpsertColumns
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "platform_order_id"},
		},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(order).Error; err != nil {
		return err
	}

	return reload(db, order, "platform = ? AND platform_order_id = ?", order.Platform, order.PlatformOrderID)
}

func (r *orderRepository) FindByRef(ctx context.Context, platform, platformOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("platform = ? AND platform_order_id = ?", platform, platformOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

func (r *orderRepository) UpsertItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "order_id"},
			{Name: "product_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "unit_price", "updated_at"}),
	}).Create(item).Error
}

func (r *orderRepository) CreatePayment(ctx context.Context, payment *models.Payment) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "raw_event_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) CreateRefund(ctx context.Context, refund *models.Refund) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "raw_event_id"}},
		DoNothing: true,
	}).Create(refund)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
