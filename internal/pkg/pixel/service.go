// Package pixel records anonymous visitor touches for later attribution.
package pixel

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/attribution"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// DefaultTTL is how long a visitor row lives after its last hit.
const DefaultTTL = 90 * 24 * time.Hour

var validate = validator.New()

// Hit is one pixel call. Timestamp is in Unix milliseconds as sent by
// Date.now(); the server clock is used when it is missing or in the future.
type Hit struct {
	VisitorID   string `json:"visitor_id" query:"visitor_id" validate:"required,max=191"`
	Email       string `json:"email" query:"email" validate:"max=191"`
	CPF         string `json:"cpf" query:"cpf" validate:"max=32"`
	UTMSource   string `json:"utm_source" query:"utm_source" validate:"max=191"`
	UTMMedium   string `json:"utm_medium" query:"utm_medium" validate:"max=191"`
	UTMCampaign string `json:"utm_campaign" query:"utm_campaign" validate:"max=191"`
	UTMContent  string `json:"utm_content" query:"utm_content" validate:"max=191"`
	UTMTerm     string `json:"utm_term" query:"utm_term" validate:"max=191"`
	Fbclid      string `json:"fbclid" query:"fbclid" validate:"max=255"`
	Gclid       string `json:"gclid" query:"gclid" validate:"max=255"`
	LandingPage string `json:"landing_page" query:"landing_page" validate:"max=2048"`
	Timestamp   int64  `json:"timestamp" query:"timestamp"`
}

func (h Hit) touch() models.TouchFields {
	return models.TouchFields{
		UTMSource:   strings.TrimSpace(h.UTMSource),
		UTMMedium:   strings.TrimSpace(h.UTMMedium),
		UTMCampaign: strings.TrimSpace(h.UTMCampaign),
		UTMContent:  strings.TrimSpace(h.UTMContent),
		UTMTerm:     strings.TrimSpace(h.UTMTerm),
		Fbclid:      strings.TrimSpace(h.Fbclid),
		Gclid:       strings.TrimSpace(h.Gclid),
	}
}

// Store is the last touch table.
type Store interface {
	FindByVisitor(ctx context.Context, visitorID string) (*models.LastTouch, error)
	Replace(ctx context.Context, touch *models.LastTouch) error
	PurgeSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Record replaces the visitor's row with this hit. A direct hit (no source,
// medium or click id) keeps the visitor's previous campaign and only
// refreshes identity and last_seen_at. Rows not seen within the TTL are
// purged on every call.
func (s *Service) Record(ctx context.Context, hit Hit) (*models.LastTouch, error) {
	hit.VisitorID = strings.TrimSpace(hit.VisitorID)
	if err := validate.Struct(hit); err != nil {
		return nil, apperror.Validation("invalid pixel payload", err)
	}

	now := s.now()
	touchedAt := now
	if hit.Timestamp > 0 {
		if t := time.UnixMilli(hit.Timestamp).UTC(); !t.After(now) {
			touchedAt = t
		}
	}

	fields := hit.touch()
	row := &models.LastTouch{
		VisitorID:   hit.VisitorID,
		Email:       optional(strings.ToLower(strings.TrimSpace(hit.Email))),
		CPF:         optional(cpfDigits(hit.CPF)),
		TouchFields: fields,
		LandingPage: strings.TrimSpace(hit.LandingPage),
		IsDirect:    attribution.IsDirect(fields),
		TouchedAt:   touchedAt,
		LastSeenAt:  now,
	}

	existing, err := s.store.FindByVisitor(ctx, hit.VisitorID)
	if err != nil {
		return nil, apperror.Internal("load last touch", err)
	}
	if existing != nil {
		if row.Email == nil {
			row.Email = existing.Email
		}
		if row.CPF == nil {
			row.CPF = existing.CPF
		}
		row.TouchFields = attribution.Merge(existing.TouchFields, fields)
		if row.IsDirect {
			row.IsDirect = existing.IsDirect
			row.TouchedAt = existing.TouchedAt
			if row.LandingPage == "" {
				row.LandingPage = existing.LandingPage
			}
		}
	}

	if err := s.store.Replace(ctx, row); err != nil {
		return nil, apperror.Internal("save last touch", err)
	}

	log := logger.FromContext(ctx)
	if purged, err := s.store.PurgeSeenBefore(ctx, now.Add(-s.ttl)); err != nil {
		log.Warn("last touch purge failed", zap.Error(err))
	} else if purged > 0 {
		log.Info("purged expired last touches", zap.Int64("rows", purged))
	}

	log.Debug("pixel touch recorded",
		zap.String("visitor_id", row.VisitorID),
		zap.Bool("direct", row.IsDirect),
		zap.String("utm_source", row.TouchFields.UTMSource),
	)
	return row, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// cpfDigits keeps the digits of a CPF (or CNPJ); longer values are dropped.
func cpfDigits(s string) string {
	d := digits(s)
	if len(d) > 14 {
		return ""
	}
	return d
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
