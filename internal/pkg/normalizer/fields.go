package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/app/models"
)

// flexString accepts a JSON string or number, platforms are not consistent
// about ids and status codes.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// trackingPayload is the common set of marketing parameters.
type trackingPayload struct {
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
	Fbclid      string `json:"fbclid"`
	Gclid       string `json:"gclid"`
}

// touch returns nil when no parameter is set.
func (t trackingPayload) touch() *models.TouchFields {
	fields := models.TouchFields{
		UTMSource:   strings.TrimSpace(t.UTMSource),
		UTMMedium:   strings.TrimSpace(t.UTMMedium),
		UTMCampaign: strings.TrimSpace(t.UTMCampaign),
		UTMContent:  strings.TrimSpace(t.UTMContent),
		UTMTerm:     strings.TrimSpace(t.UTMTerm),
		Fbclid:      strings.TrimSpace(t.Fbclid),
		Gclid:       strings.TrimSpace(t.Gclid),
	}
	if fields == (models.TouchFields{}) {
		return nil
	}
	return &fields
}

func cleanEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// digitsOnly strips CPF formatting such as "123.456.789-01".
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func newCustomer(email, cpf, name, phone string) Customer {
	return Customer{
		Email: cleanEmail(email),
		CPF:   digitsOnly(cpf),
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
	}
}

// money rounds to cents.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// parseLocaleDecimal accepts "497.00", "497,00", "1.497,00" and "1,497.00".
// With both separators present the rightmost one is the decimal mark. A
// separator repeated without the other ("1.497.000") only groups thousands.
func parseLocaleDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount %q", ErrInvalidPayload, s)
	}
	return money(d), nil
}

func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime tries the known layouts, naive timestamps are taken as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func timeOr(s string, fallback time.Time) time.Time {
	if t, ok := parseTime(s); ok {
		return t
	}
	return fallback
}

func optionalTime(s string) *time.Time {
	if t, ok := parseTime(s); ok {
		return &t
	}
	return nil
}

func unixMilliOr(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// orderFacts is what the order platforms have in common before the
// variant is chosen.
type orderFacts struct {
	envelope      Envelope
	orderRef      string
	status        string
	amount        decimal.Decimal
	fee           decimal.Decimal
	currency      string
	paymentMethod string
	installments  int
	paidAt        time.Time
	refundReason  string
	items         []Item
}

// event picks the variant from the mapped status.
func (f orderFacts) event() Event {
	if f.installments <= 0 {
		f.installments = 1
	}
	switch f.status {
	case models.OrderStatusRefunded:
		return &Refund{
			Envelope: f.envelope,
			OrderRef: f.orderRef,
			Amount:   f.amount,
			Reason:   orDefault(f.refundReason, DefaultRefundReason),
		}
	case models.OrderStatusChargeback:
		return &Chargeback{
			Envelope: f.envelope,
			OrderRef: f.orderRef,
			Amount:   f.amount,
		}
	case models.OrderStatusPaid:
		paidAt := f.paidAt
		if paidAt.IsZero() {
			paidAt = f.envelope.OccurredAt
		}
		return &OrderPaid{
			Envelope:      f.envelope,
			OrderRef:      f.orderRef,
			Amount:        f.amount,
			Fee:           f.fee,
			PaymentMethod: f.paymentMethod,
			Installments:  f.installments,
			PaidAt:        paidAt,
		}
	default:
		return &OrderCreated{
			Envelope:      f.envelope,
			OrderRef:      f.orderRef,
			Status:        f.status,
			Amount:        f.amount,
			Fee:           f.fee,
			Currency:      orDefault(f.currency, "BRL"),
			PaymentMethod: f.paymentMethod,
			Installments:  f.installments,
			Items:         f.items,
		}
	}
}
