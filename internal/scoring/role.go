package scoring

import (
	"strings"

	"marketing-signal-lab/internal/domain"
)

// Funnel role naming vocabularies checked against the lowercased campaign name.
var (
	awarenessKeywords     = []string{"tof", "prospecting", "awareness", "cold", "discovery"}
	considerationKeywords = []string{"mof", "consideration", "engaged"}
	conversionKeywords    = []string{"bof", "retargeting", "cart", "checkout"}
	retentionKeywords     = []string{"retention", "past customer", "repeat", "loyalty"}
)

// ClassifyFunnelRole decides what part of the funnel a campaign serves.
// Explicit naming wins; otherwise the first-to-last-click ROAS ratio and new
// customer share are used. Defaults to mixed when nothing matches.
func ClassifyFunnelRole(name string, firstClickROAS, lastClickROAS, ncPct float64) domain.FunnelRole {
	nameLower := strings.ToLower(name)

	if containsAny(nameLower, awarenessKeywords) {
		return domain.RoleAwareness
	}
	if containsAny(nameLower, considerationKeywords) {
		return domain.RoleConsideration
	}
	if containsAny(nameLower, conversionKeywords) {
		return domain.RoleConversion
	}
	if containsAny(nameLower, retentionKeywords) {
		return domain.RoleRetention
	}

	fcToLC := 0.0
	if lastClickROAS > 0 {
		fcToLC = firstClickROAS / lastClickROAS
	}

	switch {
	case fcToLC > 0.9 && ncPct > 0.7:
		// First-click keeps up with last-click and traffic is mostly new
		// customers: the campaign is initiating journeys.
		return domain.RoleAwareness
	case fcToLC < 0.5 && ncPct < 0.3:
		// Last-click much stronger on returning customers: closing, not opening.
		return domain.RoleRetention
	case ncPct > 0.5:
		return domain.RoleConsideration
	default:
		return domain.RoleMixed
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
