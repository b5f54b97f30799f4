package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/models"
)

// RawEventRepository stores webhook deliveries and their processing state.
type RawEventRepository interface {
	// InsertIfAbsent inserts event unless a row with the same hash exists.
	// It reports whether this call created the row and returns the stored row.
	InsertIfAbsent(ctx context.Context, event *models.RawEvent) (bool, *models.RawEvent, error)
	GetByID(ctx context.Context, id uint) (*models.RawEvent, error)
	GetByHash(ctx context.Context, hash string) (*models.RawEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
	IncrementAttempts(ctx context.Context, id uint) error
	ListUnprocessed(ctx context.Context, receivedBefore time.Time, maxAttempts, limit int) ([]models.RawEvent, error)
	RecordError(ctx context.Context, eventError *models.EventError) error
}

type CustomerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindByCPF(ctx context.Context, cpf string) (*models.Customer, error)
	// CreateIfAbsent inserts customer unless the email is already taken.
	CreateIfAbsent(ctx context.Context, customer *models.Customer) (bool, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
}

type ProductRepository interface {
	Upsert(ctx context.Context, product *models.Product) error
}

type OrderRepository interface {
	Upsert(ctx context.Context, order *models.Order, updateColumns []string) error
	FindByRef(ctx context.Context, platform, platformOrderID string) (*models.Order, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	UpsertItem(ctx context.Context, item *models.OrderItem) error
	// CreatePayment and CreateRefund are no-ops for a raw event that already
	// produced a row; the bool reports whether a row was written.
	CreatePayment(ctx context.Context, payment *models.Payment) (bool, error)
	CreateRefund(ctx context.Context, refund *models.Refund) (bool, error)
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
}

type EnrollmentRepository interface {
	Upsert(ctx context.Context, enrollment *models.Enrollment) error
}

type AttributionRepository interface {
	FindByOrderID(ctx context.Context, orderID uint) (*models.Attribution, error)
	Upsert(ctx context.Context, attribution *models.Attribution) error
}

type LastTouchRepository interface {
	FindByVisitor(ctx context.Context, visitorID string) (*models.LastTouch, error)
	// Replace deletes the visitor's row and inserts touch in one transaction.
	Replace(ctx context.Context, touch *models.LastTouch) error
	PurgeSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// FindLatestNonDirect returns the newest non-direct touch for the email,
	// then for the CPF, touched at or after since. nil when there is none.
	FindLatestNonDirect(ctx context.Context, email, cpf string, since time.Time) (*models.LastTouch, error)
}

// Repositories contains all repository instances
type Repositories struct {
	RawEvent     RawEventRepository
	Customer     CustomerRepository
	Product      ProductRepository
	Order        OrderRepository
	Subscription SubscriptionRepository
	Enrollment   EnrollmentRepository
	Attribution  AttributionRepository
	LastTouch    LastTouchRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		RawEvent:     NewRawEventRepository(db),
		Customer:     NewCustomerRepository(db),
		Product:      NewProductRepository(db),
		Order:        NewOrderRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Enrollment:   NewEnrollmentRepository(db),
		Attribution:  NewAttributionRepository(db),
		LastTouch:    NewLastTouchRepository(db),
	}
}
