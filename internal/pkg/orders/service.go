package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/attribution"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
)

// Result summarizes what a handler wrote. It is returned to the caller of
// the processor endpoint.
type Result struct {
	Entity          string `json:"entity"`
	ID              uint   `json:"id"`
	Status          string `json:"status,omitempty"`
	PaymentRecorded bool   `json:"payment_recorded,omitempty"`
	RefundRecorded  bool   `json:"refund_recorded,omitempty"`
	Attributed      bool   `json:"attributed,omitempty"`
	StatusSkipped   bool   `json:"status_skipped,omitempty"`
}

type Option func(*Service)

// WithStatusGuard makes status writes older than the order's last status
// change a no-op. Without it status is a blind overwrite.
func WithStatusGuard(enabled bool) Option {
	return func(s *Service) { s.statusGuard = enabled }
}

type Service struct {
	repos       *repository.Repositories
	attribution *attribution.Engine
	statusGuard bool
}

func NewService(repos *repository.Repositories, engine *attribution.Engine, opts ...Option) *Service {
	s := &Service{repos: repos, attribution: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertCustomer finds the customer by email, then by CPF, and creates it
// when neither matches. Email and CPF are only filled when still empty;
// name and phone take any non-empty incoming value.
func (s *Service) UpsertCustomer(ctx context.Context, in normalizer.Customer) (*models.Customer, error) {
	if in.Email == "" && in.CPF == "" {
		return nil, apperror.Unprocessable("customer has neither email nor cpf", nil)
	}

	existing, err := s.findCustomer(ctx, in)
	if err != nil {
		return nil, apperror.Internal("find customer", err)
	}

	if existing == nil {
		customer := &models.Customer{
			Email: optional(in.Email),
			CPF:   optional(in.CPF),
			Name:  in.Name,
			Phone: in.Phone,
		}
		created, err := s.repos.Customer.CreateIfAbsent(ctx, customer)
		if err != nil {
			return nil, apperror.Internal("create customer", err)
		}
		if created {
			return customer, nil
		}
		// lost the race on the email index
		existing, err = s.findCustomer(ctx, in)
		if err != nil || existing == nil {
			return nil, apperror.Internal("reload customer", err)
		}
	}

	updates := map[string]interface{}{}
	if existing.Email == nil && in.Email != "" {
		updates["email"] = in.Email
		existing.Email = optional(in.Email)
	}
	if existing.CPF == nil && in.CPF != "" {
		updates["cpf"] = in.CPF
		existing.CPF = optional(in.CPF)
	}
	if in.Name != "" && in.Name != existing.Name {
		updates["name"] = in.Name
		existing.Name = in.Name
	}
	if in.Phone != "" && in.Phone != existing.Phone {
		updates["phone"] = in.Phone
		existing.Phone = in.Phone
	}
	if err := s.repos.Customer.Update(ctx, existing.ID, updates); err != nil {
		return nil, apperror.Internal("update customer", err)
	}
	return existing, nil
}

func (s *Service) findCustomer(ctx context.Context, in normalizer.Customer) (*models.Customer, error) {
	if in.Email != "" {
		c, err := s.repos.Customer.FindByEmail(ctx, in.Email)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if in.CPF != "" {
		c, err := s.repos.Customer.FindByCPF(ctx, in.CPF)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// UpsertProduct writes name and price last-writer-wins. Items without a
// platform id are not products and return nil.
func (s *Service) UpsertProduct(ctx context.Context, platform string, item normalizer.Item) (*models.Product, error) {
	if item.Ref == "" {
		return nil, nil
	}
	product := &models.Product{
		Platform:          platform,
		PlatformProductID: item.Ref,
		Name:              item.Name,
		Price:             item.UnitPrice,
	}
	if err := s.repos.Product.Upsert(ctx, product); err != nil {
		return nil, apperror.Internal("upsert product", err)
	}
	return product, nil
}

// UpsertOrder inserts or overwrites the order by (platform, platform order
// id). Nil timestamps never clear stored ones.
func (s *Service) UpsertOrder(ctx context.Context, order *models.Order) (bool, error) {
	columns := make([]string, 0, len(repository.OrderUpsertColumns))
	skipStatus := false
	if s.statusGuard && order.LastStatusAt != nil {
		existing, err := s.repos.Order.FindByRef(ctx, order.Platform, order.PlatformOrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperror.Internal("load order", err)
		}
		skipStatus = existing != nil && isStale(existing, *order.LastStatusAt)
	}

	for _, col := range repository.OrderUpsertColumns {
		switch col {
		case "ordered_at":
			if order.OrderedAt == nil {
				continue
			}
		case "paid_at":
			if order.PaidAt == nil || skipStatus {
				continue
			}
		case "last_status_at":
			if order.LastStatusAt == nil || skipStatus {
				continue
			}
		case "status":
			if skipStatus {
				continue
			}
		}
		columns = append(columns, col)
	}

	if err := s.repos.Order.Upsert(ctx, order, columns); err != nil {
		return false, apperror.Internal("upsert order", err)
	}
	return skipStatus, nil
}

func isStale(existing *models.Order, at time.Time) bool {
	return existing.LastStatusAt != nil && at.Before(*existing.LastStatusAt)
}

// HandleOrderCreated writes customer, products, order, items and
// attribution in that order, then a payment when the order arrives paid.
func (s *Service) HandleOrderCreated(ctx context.Context, rawEventID uint, ev *normalizer.OrderCreated) (*Result, error) {
	customer, err := s.UpsertCustomer(ctx, ev.Customer)
	if err != nil {
		return nil, err
	}

	type line struct {
		product *models.Product
		item    normalizer.Item
	}
	lines := make([]line, 0, len(ev.Items))
	for _, item := range ev.Items {
		product, err := s.UpsertProduct(ctx, ev.Platform, item)
		if err != nil {
			return nil, err
		}
		if product != nil {
			lines = append(lines, line{product: product, item: item})
		}
	}

	at := ev.OccurredAt
	order := &models.Order{
		Platform:        ev.Platform,
		PlatformOrderID: ev.OrderRef,
		CustomerID:      customer.ID,
		Status:          ev.Status,
		Amount:          ev.Amount,
		Fee:             ev.Fee,
		Currency:        ev.Currency,
		PaymentMethod:   ev.PaymentMethod,
		Installments:    ev.Installments,
		OrderedAt:       &at,
		LastStatusAt:    &at,
	}
	if ev.Status == models.OrderStatusPaid {
		order.PaidAt = &at
	}
	skipped, err := s.UpsertOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		quantity := l.item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if err := s.repos.Order.UpsertItem(ctx, &models.OrderItem{
			OrderID:   order.ID,
			ProductID: l.product.ID,
			Quantity:  quantity,
			UnitPrice: l.item.UnitPrice,
		}); err != nil {
			return nil, apperror.Internal("upsert order item", err)
		}
	}

	result := &Result{Entity: "order", ID: order.ID, Status: order.Status, StatusSkipped: skipped}
	if result.Attributed, err = s.attribute(ctx, order.ID, &ev.Envelope); err != nil {
		return nil, err
	}

	if ev.Status == models.OrderStatusPaid && !skipped {
		result.PaymentRecorded, err = s.recordPayment(ctx, rawEventID, order, at)
		if err != nil {
			return nil, err
		}
	}

	logger.FromContext(ctx).Info("order upserted",
		zap.Uint("order_id", order.ID),
		zap.String("platform_order_id", order.PlatformOrderID),
		zap.String("status", order.Status),
		zap.Int("items", len(lines)),
	)
	return result, nil
}

// HandleOrderPaid flips an existing order to paid and books the payment.
func (s *Service) HandleOrderPaid(ctx context.Context, rawEventID uint, ev *normalizer.OrderPaid) (*Result, error) {
	order, err := s.findOrder(ctx, ev.Platform, ev.OrderRef)
	if err != nil {
		return nil, err
	}

	result := &Result{Entity: "order", ID: order.ID, Status: models.OrderStatusPaid}
	if s.statusGuard && isStale(order, ev.OccurredAt) {
		result.StatusSkipped = true
		result.Status = order.Status
		logger.FromContext(ctx).Info("stale paid event ignored", zap.Uint("order_id", order.ID))
		return result, nil
	}

	updates := map[string]interface{}{
		"status":         models.OrderStatusPaid,
		"paid_at":        ev.PaidAt,
		"last_status_at": ev.OccurredAt,
	}
	if !ev.Amount.IsZero() {
		updates["amount"] = ev.Amount
		order.Amount = ev.Amount
	}
	if !ev.Fee.IsZero() {
		updates["fee"] = ev.Fee
		order.Fee = ev.Fee
	}
	if ev.PaymentMethod != "" {
		updates["payment_method"] = ev.PaymentMethod
		order.PaymentMethod = ev.PaymentMethod
	}
	if ev.Installments > 0 {
		updates["installments"] = ev.Installments
		order.Installments = ev.Installments
	}
	if err := s.repos.Order.Update(ctx, order.ID, updates); err != nil {
		return nil, apperror.Internal("mark order paid", err)
	}
	order.Status = models.OrderStatusPaid

	if result.PaymentRecorded, err = s.recordPayment(ctx, rawEventID, order, ev.PaidAt); err != nil {
		return nil, err
	}
	if result.Attributed, err = s.attribute(ctx, order.ID, &ev.Envelope); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("order paid",
		zap.Uint("order_id", order.ID),
		zap.String("amount", ev.Amount.StringFixed(2)),
		zap.Bool("payment_recorded", result.PaymentRecorded),
	)
	return result, nil
}

func (s *Service) HandleRefund(ctx context.Context, rawEventID uint, ev *normalizer.Refund) (*Result, error) {
	return s.refund(ctx, rawEventID, &ev.Envelope, ev.OrderRef, ev.Amount, ev.Reason, models.OrderStatusRefunded)
}

// HandleChargeback books the chargeback as a refund with a fixed reason.
func (s *Service) HandleChargeback(ctx context.Context, rawEventID uint, ev *normalizer.Chargeback) (*Result, error) {
	return s.refund(ctx, rawEventID, &ev.Envelope, ev.OrderRef, ev.Amount, models.RefundReasonChargeback, models.OrderStatusChargeback)
}

func (s *Service) refund(ctx context.Context, rawEventID uint, env *normalizer.Envelope, orderRef string, amount decimal.Decimal, reason, status string) (*Result, error) {
	order, err := s.findOrder(ctx, env.Platform, orderRef)
	if err != nil {
		return nil, err
	}

	result := &Result{Entity: "order", ID: order.ID, Status: status}
	if s.statusGuard && isStale(order, env.OccurredAt) {
		result.StatusSkipped = true
		result.Status = order.Status
	} else if err := s.repos.Order.Update(ctx, order.ID, map[string]interface{}{
		"status":         status,
		"last_status_at": env.OccurredAt,
	}); err != nil {
		return nil, apperror.Internal("update order status", err)
	}

	if amount.IsZero() {
		amount = order.Amount
	}
	result.RefundRecorded, err = s.repos.Order.CreateRefund(ctx, &models.Refund{
		OrderID:    order.ID,
		RawEventID: rawEventID,
		Amount:     amount,
		Reason:     reason,
		RefundedAt: env.OccurredAt,
	})
	if err != nil {
		return nil, apperror.Internal("create refund", err)
	}

	logger.FromContext(ctx).Info("order refunded",
		zap.Uint("order_id", order.ID),
		zap.String("status", status),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("reason", reason),
	)
	return result, nil
}

// HandleSubscriptionRenewed upserts customer, product and subscription.
func (s *Service) HandleSubscriptionRenewed(ctx context.Context, ev *normalizer.SubscriptionRenewed) (*Result, error) {
	customer, err := s.UpsertCustomer(ctx, ev.Customer)
	if err != nil {
		return nil, err
	}
	product, err := s.requireProduct(ctx, ev.Platform, ev.Product)
	if err != nil {
		return nil, err
	}

	renewedAt := ev.RenewedAt
	sub := &models.Subscription{
		Platform:               ev.Platform,
		PlatformSubscriptionID: ev.SubscriptionRef,
		CustomerID:             customer.ID,
		ProductID:              product.ID,
		Status:                 ev.Status,
		PlanName:               ev.PlanName,
		Amount:                 ev.Amount,
		LastRenewedAt:          &renewedAt,
		NextChargeAt:           ev.NextChargeAt,
	}
	if err := s.repos.Subscription.Upsert(ctx, sub); err != nil {
		return nil, apperror.Internal("upsert subscription", err)
	}

	logger.FromContext(ctx).Info("subscription renewed",
		zap.Uint("subscription_id", sub.ID),
		zap.String("status", sub.Status),
	)
	return &Result{Entity: "subscription", ID: sub.ID, Status: sub.Status}, nil
}

// HandleEnrollment upserts customer, course product and enrollment.
func (s *Service) HandleEnrollment(ctx context.Context, ev *normalizer.Enrollment) (*Result, error) {
	customer, err := s.UpsertCustomer(ctx, ev.Customer)
	if err != nil {
		return nil, err
	}
	product, err := s.requireProduct(ctx, ev.Platform, ev.Course)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		Platform:             ev.Platform,
		PlatformEnrollmentID: ev.EnrollmentRef,
		CustomerID:           customer.ID,
		ProductID:            product.ID,
		Status:               ev.Status,
		EnrolledAt:           ev.EnrolledAt,
		ExpiresAt:            ev.ExpiresAt,
	}
	if err := s.repos.Enrollment.Upsert(ctx, enrollment); err != nil {
		return nil, apperror.Internal("upsert enrollment", err)
	}

	logger.FromContext(ctx).Info("enrollment upserted",
		zap.Uint("enrollment_id", enrollment.ID),
		zap.String("status", enrollment.Status),
	)
	return &Result{Entity: "enrollment", ID: enrollment.ID, Status: enrollment.Status}, nil
}

func (s *Service) requireProduct(ctx context.Context, platform string, item normalizer.Item) (*models.Product, error) {
	product, err := s.UpsertProduct(ctx, platform, item)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.Unprocessable("product id missing", nil)
	}
	return product, nil
}

func (s *Service) findOrder(ctx context.Context, platform, ref string) (*models.Order, error) {
	order, err := s.repos.Order.FindByRef(ctx, platform, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.FromContext(ctx).Warn("order not found", zap.String("platform_order_id", ref))
		return nil, apperror.NotFound(fmt.Sprintf("order %s not found", ref))
	}
	if err != nil {
		return nil, apperror.Internal("load order", err)
	}
	return order, nil
}

func (s *Service) recordPayment(ctx context.Context, rawEventID uint, order *models.Order, paidAt time.Time) (bool, error) {
	created, err := s.repos.Order.CreatePayment(ctx, &models.Payment{
		OrderID:      order.ID,
		RawEventID:   rawEventID,
		Amount:       order.Amount,
		Fee:          order.Fee,
		Method:       order.PaymentMethod,
		Installments: order.Installments,
		PaidAt:       paidAt,
	})
	if err != nil {
		return false, apperror.Internal("create payment", err)
	}
	return created, nil
}

func (s *Service) attribute(ctx context.Context, orderID uint, env *normalizer.Envelope) (bool, error) {
	if s.attribution == nil {
		return false, nil
	}
	a, err := s.attribution.Attribute(ctx, attribution.Input{
		OrderID: orderID,
		Email:   env.Customer.Email,
		CPF:     env.Customer.CPF,
		Inline:  env.Touch,
		At:      env.OccurredAt,
	})
	if err != nil {
		return false, apperror.Internal("attribute order", err)
	}
	return a != nil, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
