package normalizer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/app/models"
)

// EventType names a canonical event variant.
type EventType string

const (
	TypeOrderCreated        EventType = "order_created"
	TypeOrderPaid           EventType = "order_paid"
	TypeRefund              EventType = "refund"
	TypeChargeback          EventType = "chargeback"
	TypeSubscriptionRenewed EventType = "subscription_renewed"
	TypeEnrollment          EventType = "enrollment"
)

// DefaultRefundReason is used when a platform does not send a reason.
const DefaultRefundReason = "Solicitação do cliente"

// Event is the platform independent form of a webhook. The concrete type is
// one of *OrderCreated, *OrderPaid, *Refund, *Chargeback,
// *SubscriptionRenewed or *Enrollment.
type Event interface {
	Type() EventType
	Meta() *Envelope
	isCanonical()
}

// Customer identity as sent by the platform. Email is lowercased and CPF
// reduced to digits.
type Customer struct {
	Email string
	CPF   string
	Name  string
	Phone string
}

// Item is one product line. Ref is the platform's product id.
type Item struct {
	Ref       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Envelope carries the fields every variant shares. Touch is nil when the
// payload had no marketing parameters.
type Envelope struct {
	Platform   string
	OccurredAt time.Time
	Customer   Customer
	Touch      *models.TouchFields
}

func (e *Envelope) Meta() *Envelope { return e }

func (*Envelope) isCanonical() {}

type OrderCreated struct {
	Envelope
	OrderRef      string
	Status        string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Currency      string
	PaymentMethod string
	Installments  int
	Items         []Item
}

type OrderPaid struct {
	Envelope
	OrderRef      string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	PaymentMethod string
	Installments  int
	PaidAt        time.Time
}

type Refund struct {
	Envelope
	OrderRef string
	Amount   decimal.Decimal
	Reason   string
}

type Chargeback struct {
	Envelope
	OrderRef string
	Amount   decimal.Decimal
}

type SubscriptionRenewed struct {
	Envelope
	SubscriptionRef string
	Status          string
	PlanName        string
	Amount          decimal.Decimal
	Product         Item
	RenewedAt       time.Time
	NextChargeAt    *time.Time
}

type Enrollment struct {
	Envelope
	EnrollmentRef string
	Status        string
	Course        Item
	EnrolledAt    time.Time
	ExpiresAt     *time.Time
}

func (*OrderCreated) Type() EventType        { return TypeOrderCreated }
func (*OrderPaid) Type() EventType           { return TypeOrderPaid }
func (*Refund) Type() EventType              { return TypeRefund }
func (*Chargeback) Type() EventType          { return TypeChargeback }
func (*SubscriptionRenewed) Type() EventType { return TypeSubscriptionRenewed }
func (*Enrollment) Type() EventType          { return TypeEnrollment }
