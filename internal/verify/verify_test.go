package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyDirectMention(t *testing.T) {
	page := "End-of-Sale Announcement for the Cisco Catalyst WS-C3850-48P switch."
	assert.True(t, Verify(page, "WS-C3850-48P"))
}

func TestVerifyCaseInsensitive(t *testing.T) {
	page := "bulletin covering the ws-c3850-48p model"
	assert.True(t, Verify(page, "WS-C3850-48P"))
}

func TestVerifyVariantMention(t *testing.T) {
	// Prefix dropped.
	assert.True(t, Verify("This notice covers the C3850-48P configuration.", "WS-C3850-48P"))
	// Core part alone.
	assert.True(t, Verify("All C3850 series switches reach end of sale.", "WS-C3850-48P"))
	// Hyphens as spaces.
	assert.True(t, Verify("the Catalyst C3850 48P reaches end of life", "WS-C3850-48P"))
}

func TestVerifyNoMention(t *testing.T) {
	page := "End-of-Sale Announcement for the Nexus 9000 series."
	assert.False(t, Verify(page, "WS-C3850-48P"))
	assert.False(t, Verify("", "WS-C3850-48P"))
	assert.False(t, Verify(page, ""))
}

func TestVerifyExclusion(t *testing.T) {
	page := "This end-of-life notice excludes WS-C3850-48P and its variants."
	assert.False(t, Verify(page, "WS-C3850-48P"))

	page = "The dates below are not applicable to the WS-C3850-48P model."
	assert.False(t, Verify(page, "WS-C3850-48P"))

	page = "All models are affected except for WS-C3850-48P."
	assert.False(t, Verify(page, "WS-C3850-48P"))
}

func TestVerifyExclusionOutranksOtherMentions(t *testing.T) {
	// One excluded occurrence disqualifies the page even when another
	// occurrence looks clean.
	page := "Lifecycle notice for WS-C3850-48P. Note: pricing terms do not apply to WS-C3850-48P."
	assert.False(t, Verify(page, "WS-C3850-48P"))
}

func TestVerifyExclusionFarAway(t *testing.T) {
	// An exclusion phrase well outside the radius does not disqualify.
	page := "Some models are excluded from trade-in programs as described elsewhere in other documents that are not part of this announcement at all whatsoever. " +
		"The WS-C3850-48P reaches end of sale."
	assert.True(t, Verify(page, "WS-C3850-48P"))
}

func TestVariants(t *testing.T) {
	vs := Variants("WS-C3850-48P")
	assert.Contains(t, vs, "WS-C3850-48P")
	assert.Contains(t, vs, "C3850-48P")
	assert.Contains(t, vs, "C3850")
	assert.Contains(t, vs, "WS C3850 48P")
	assert.Contains(t, vs, "C3850 48P")
}

func TestVariantsShortPartsDropped(t *testing.T) {
	// Two-character core parts are too ambiguous to count as mentions.
	vs := Variants("AB-C1-XY")
	assert.NotContains(t, vs, "C1")
	assert.NotContains(t, vs, "XY")
}

func TestVariantsNoHyphen(t *testing.T) {
	vs := Variants("FAS2750")
	assert.Equal(t, []string{"FAS2750"}, vs)
}

func TestVariantsDedup(t *testing.T) {
	vs := Variants("x-Y-x")
	seen := map[string]bool{}
	for _, v := range vs {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}
