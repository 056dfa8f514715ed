package enrich

import (
	"github.com/aiwire/observatory/internal/models"
)

// GateRelationship admits or quarantines a proposed relationship. The
// decision depends only on the claim's risk class and the event's evidence;
// the model's own confidence is recorded for analysis and never consulted.
func GateRelationship(typ models.RelationshipType, profile models.TrustProfile) models.RelationshipStatus {
	switch typ.Risk() {
	case models.RiskLow:
		return models.RelStatusApproved
	case models.RiskMedium, models.RiskHigh:
		if profile.HasTier(models.TierAuthoritative) || profile.SourceCount >= 2 {
			return models.RelStatusApproved
		}
		return models.RelStatusQuarantined
	default:
		return models.RelStatusRejected
	}
}
