package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/TrackFox/app/models"
)

func TestMergeIsNullCoalescing(t *testing.T) {
	existing := models.TouchFields{UTMSource: "old-src", UTMCampaign: "old-camp"}
	incoming := models.TouchFields{UTMCampaign: "new"}

	assert.Equal(t, models.TouchFields{UTMSource: "old-src", UTMCampaign: "new"}, Merge(existing, incoming))
}

func TestMergeGclidKeepsCampaign(t *testing.T) {
	existing := models.TouchFields{UTMSource: "google", UTMCampaign: "brand", Fbclid: "fb"}
	merged := Merge(existing, models.TouchFields{Gclid: "g-1"})

	assert.Equal(t, "brand", merged.UTMCampaign)
	assert.Equal(t, "fb", merged.Fbclid)
	assert.Equal(t, "g-1", merged.Gclid)
}

func TestIsDirect(t *testing.T) {
	assert.True(t, IsDirect(models.TouchFields{}))
	assert.True(t, IsDirect(models.TouchFields{UTMCampaign: "x", UTMTerm: "y"}))
	assert.False(t, IsDirect(models.TouchFields{UTMMedium: "email"}))
	assert.False(t, IsDirect(models.TouchFields{Gclid: "g"}))
}

func TestHasInlineSignal(t *testing.T) {
	assert.False(t, HasInlineSignal(nil))
	assert.False(t, HasInlineSignal(&models.TouchFields{UTMMedium: "cpc"}))
	assert.True(t, HasInlineSignal(&models.TouchFields{UTMSource: "x"}))
	assert.True(t, HasInlineSignal(&models.TouchFields{Fbclid: "x"}))
}
