package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/TrackFox/app/models"
)

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "platform_enrollment_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"product_id",
			"status",
			"enrolled_at",
			"expires_at",
			"updated_at",
		}),
	}).Create(enrollment).Error; err != nil {
		return err
	}

	return reload(db, enrollment, "platform = ? AND platform_enrollment_id = ?", enrollment.Platform, enrollment.PlatformEnrollmentID)
}
