package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiwire/observatory/internal/models"
)

// Artifact payloads. Each kind has its own shape; ValidateArtifact is the
// single boundary where LLM output is checked before anything is persisted.

// HeadlinePayload carries the rewritten headline and the impact estimate.
type HeadlinePayload struct {
	Headline    string `json:"headline"`
	ImpactLevel string `json:"impactLevel"`
}

// TextPayload covers the prose artifact kinds: WHAT_HAPPENED, SUMMARY,
// WHY_MATTERS, GM_TAKE.
type TextPayload struct {
	Text string `json:"text"`
}

// EntityExtractPayload lists the entities an event mentions.
type EntityExtractPayload struct {
	Entities []ExtractedEntity `json:"entities"`
}

// ExtractedEntity is one extracted mention.
type ExtractedEntity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
}

// TopicAssignPayload lists topic assignments.
type TopicAssignPayload struct {
	Topics []AssignedTopic `json:"topics"`
}

// AssignedTopic is one topic slug with assignment confidence.
type AssignedTopic struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
}

// RelationshipExtractPayload lists proposed entity relationships.
type RelationshipExtractPayload struct {
	Relationships []ProposedRelationship `json:"relationships"`
}

// ProposedRelationship is one directed claim between mentioned entities.
type ProposedRelationship struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

var validEntityTypes = map[string]bool{
	string(models.EntityCompany):    true,
	string(models.EntityLab):        true,
	string(models.EntityModel):      true,
	string(models.EntityProduct):    true,
	string(models.EntityPerson):     true,
	string(models.EntityRegulation): true,
	string(models.EntityDataset):    true,
	string(models.EntityBenchmark):  true,
}

var validMentionRoles = map[string]bool{
	string(models.MentionSubject):   true,
	string(models.MentionObject):    true,
	string(models.MentionMentioned): true,
}

var validImpactLevels = map[string]bool{
	string(models.ImpactBreaking): true,
	string(models.ImpactHigh):     true,
	string(models.ImpactMedium):   true,
	string(models.ImpactLow):      true,
}

// ValidateArtifact checks a raw payload against its kind's schema. Invalid
// payloads never reach the artifact store.
func ValidateArtifact(typ models.ArtifactType, payload json.RawMessage) error {
	switch typ {
	case models.ArtifactHeadline:
		var p HeadlinePayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		if strings.TrimSpace(p.Headline) == "" {
			return fmt.Errorf("headline is empty")
		}
		if len(p.Headline) > 200 {
			return fmt.Errorf("headline exceeds 200 characters")
		}
		if !validImpactLevels[p.ImpactLevel] {
			return fmt.Errorf("unknown impact level %q", p.ImpactLevel)
		}
		return nil

	case models.ArtifactWhatHappened, models.ArtifactSummary,
		models.ArtifactWhyMatters, models.ArtifactGMTake:
		var p TextPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("text is empty")
		}
		return nil

	case models.ArtifactEntityExtract:
		var p EntityExtractPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		for i, e := range p.Entities {
			if strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("entity %d has no name", i)
			}
			if !validEntityTypes[e.Type] {
				return fmt.Errorf("entity %d has unknown type %q", i, e.Type)
			}
			if !validMentionRoles[e.Role] {
				return fmt.Errorf("entity %d has unknown role %q", i, e.Role)
			}
			if e.Confidence < 0 || e.Confidence > 1 {
				return fmt.Errorf("entity %d confidence %f out of [0,1]", i, e.Confidence)
			}
		}
		return nil

	case models.ArtifactTopicAssign:
		var p TopicAssignPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		for i, topic := range p.Topics {
			if !isSlug(topic.Slug) {
				return fmt.Errorf("topic %d has invalid slug %q", i, topic.Slug)
			}
			if topic.Confidence < 0 || topic.Confidence > 1 {
				return fmt.Errorf("topic %d confidence %f out of [0,1]", i, topic.Confidence)
			}
		}
		return nil

	case models.ArtifactRelationshipExtract:
		var p RelationshipExtractPayload
		if err := strictUnmarshal(payload, &p); err != nil {
			return err
		}
		for i, rel := range p.Relationships {
			if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
				return fmt.Errorf("relationship %d is missing an endpoint", i)
			}
			if rel.Source == rel.Target {
				return fmt.Errorf("relationship %d is self-referential", i)
			}
			if models.RelationshipType(rel.Type).Risk() == models.RiskUnknown {
				return fmt.Errorf("relationship %d has unknown type %q", i, rel.Type)
			}
			if rel.Confidence < 0 || rel.Confidence > 1 {
				return fmt.Errorf("relationship %d confidence %f out of [0,1]", i, rel.Confidence)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown artifact type %q", typ)
	}
}

func strictUnmarshal(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

// isSlug accepts lowercase alphanumerics and hyphens, non-empty and
// hyphen-delimited.
func isSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// Slugify maps an entity name to its canonical slug.
func Slugify(name string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
