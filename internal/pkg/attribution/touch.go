package attribution

import "github.com/ManuelReschke/TrackFox/app/models"

// IsDirect reports a visit without any campaign or click id. Content, term
// and campaign alone do not make a touch attributable.
func IsDirect(t models.TouchFields) bool {
	return t.UTMSource == "" && t.UTMMedium == "" && t.Fbclid == "" && t.Gclid == ""
}

// HasInlineSignal reports whether a webhook's own tracking data is strong
// enough to win over the pixel history.
func HasInlineSignal(t *models.TouchFields) bool {
	return t != nil && (t.UTMSource != "" || t.Fbclid != "" || t.Gclid != "")
}

// Merge combines two touches field by field, keeping incoming where it is
// set and existing otherwise. A gclid-only touch therefore keeps the
// campaign captured earlier.
func Merge(existing, incoming models.TouchFields) models.TouchFields {
	return models.TouchFields{
		UTMSource:   coalesce(incoming.UTMSource, existing.UTMSource),
		UTMMedium:   coalesce(incoming.UTMMedium, existing.UTMMedium),
		UTMCampaign: coalesce(incoming.UTMCampaign, existing.UTMCampaign),
		UTMContent:  coalesce(incoming.UTMContent, existing.UTMContent),
		UTMTerm:     coalesce(incoming.UTMTerm, existing.UTMTerm),
		Fbclid:      coalesce(incoming.Fbclid, existing.Fbclid),
		Gclid:       coalesce(incoming.Gclid, existing.Gclid),
	}
}

func coalesce(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}
