package normalizer

import (
	"context"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// platformDPayload: the enrollment platform, no money involved.
type platformDPayload struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		Enrollment struct {
			ID        flexString `json:"id" validate:"required"`
			Status    string     `json:"status"`
			CreatedAt string     `json:"created_at"`
			ExpiresAt string     `json:"expires_at"`
		} `json:"enrollment"`
		User struct {
			Email    string `json:"email" validate:"required_without=Document"`
			Name     string `json:"name"`
			Phone    string `json:"phone"`
			Document string `json:"document"`
		} `json:"user"`
		Course struct {
			ID   flexString `json:"id" validate:"required"`
			Name string     `json:"name"`
		} `json:"course"`
		Tracking trackingPayload `json:"tracking"`
	} `json:"data"`
}

type platformD struct {
	now Clock
}

func NewPlatformD(now Clock) Normalizer {
	if now == nil {
		now = systemClock
	}
	return &platformD{now: now}
}

func (n *platformD) Platform() string { return config.PlatformD }

// Normalize always yields an *Enrollment.
func (n *platformD) Normalize(ctx context.Context, payload []byte) (Event, error) {
	var p platformDPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	d := p.Data
	occurredAt := timeOr(p.OccurredAt, n.now())
	status := models.EnrollmentStatusActive
	if d.Enrollment.Status != "" {
		status = mapStatus(ctx, config.PlatformD, enrollmentStatuses, d.Enrollment.Status, models.EnrollmentStatusActive)
	}

	return &Enrollment{
		Envelope: Envelope{
			Platform:   config.PlatformD,
			OccurredAt: occurredAt,
			Customer:   newCustomer(d.User.Email, d.User.Document, d.User.Name, d.User.Phone),
			Touch:      d.Tracking.touch(),
		},
		EnrollmentRef: d.Enrollment.ID.String(),
		Status:        status,
		Course: Item{
			Ref:      d.Course.ID.String(),
			Name:     d.Course.Name,
			Quantity: 1,
		},
		EnrolledAt: timeOr(d.Enrollment.CreatedAt, occurredAt),
		ExpiresAt:  optionalTime(d.Enrollment.ExpiresAt),
	}, nil
}
