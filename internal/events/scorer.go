package events

import (
	"github.com/aiwire/observatory/internal/models"
)

// ScoreConfidence grades an event's evidence. The grade is a pure function
// of trust tiers and source count; model self-assessment never enters.
//
//	any AUTHORITATIVE source            -> HIGH
//	>=3 sources incl. STANDARD          -> HIGH
//	>=2 sources incl. STANDARD          -> MEDIUM
//	>=2 sources, LOW only               -> MEDIUM
//	single STANDARD source              -> MEDIUM
//	single LOW source, or no evidence   -> LOW
func ScoreConfidence(profile models.TrustProfile) models.ConfidenceLevel {
	if profile.HasTier(models.TierAuthoritative) {
		return models.ConfidenceHigh
	}
	if profile.HasTier(models.TierStandard) {
		if profile.SourceCount >= 3 {
			return models.ConfidenceHigh
		}
		return models.ConfidenceMedium
	}
	if profile.SourceCount >= 2 {
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

// StatusFor maps a confidence grade to the lifecycle status the scorer
// assigns: LOW-confidence events wait in quarantine for corroboration.
func StatusFor(confidence models.ConfidenceLevel) models.EventStatus {
	if confidence == models.ConfidenceLow {
		return models.EventStatusQuarantined
	}
	return models.EventStatusPublished
}
