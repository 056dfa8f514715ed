package enrich

import (
	"fmt"
	"strings"

	"github.com/aiwire/observatory/internal/models"
)

// Prompt templates for the enrichment stages. Every prompt demands JSON
// matching the payload schema in artifacts.go; ValidateArtifact enforces it.

const coreSystemPrompt = `You are an editor for an AI-industry news observatory. You turn raw headlines and page text into precise, neutral editorial artifacts. Respond with JSON only, exactly matching the requested schema. Never invent facts not present in the input.`

const entitySystemPrompt = `You extract named entities from AI-industry news. Valid types: COMPANY, LAB, MODEL, PRODUCT, PERSON, REGULATION, DATASET, BENCHMARK. Valid roles: SUBJECT, OBJECT, MENTIONED. Respond with JSON only.`

const topicSystemPrompt = `You assign topics to AI-industry news events. Topics are lowercase hyphenated slugs such as "model-release", "funding", "regulation", "open-source", "research", "safety", "hardware", "benchmarks". Respond with JSON only.`

const relationshipSystemPrompt = `You extract directed relationships between named entities in AI-industry news. Valid types: RELEASED, ANNOUNCED, PUBLISHED, PARTNERED, INTEGRATED, FUNDED, ACQUIRED, BANNED, BEATS, CRITICIZED. Only propose relationships the text states directly. Respond with JSON only.`

// eventContext renders the shared input block: the event title plus whatever
// evidence text is available, truncated to keep prompts inside model limits.
func eventContext(ev *models.Event, evidenceText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event title: %s\nOccurred: %s\nSources: %d\n",
		ev.Title, ev.OccurredAt.Format("2006-01-02"), ev.SourceCount)

	if evidenceText != "" {
		if len(evidenceText) > 6000 {
			evidenceText = evidenceText[:6000]
		}
		sb.WriteString("\nEvidence text:\n")
		sb.WriteString(evidenceText)
	}
	return sb.String()
}

func headlinePrompt(ev *models.Event, evidenceText string) string {
	return eventContext(ev, evidenceText) + `

Write a headline for this event (max 120 chars) and classify its impact.
Schema: {"headline": "<string>", "impactLevel": "BREAKING|HIGH|MEDIUM|LOW"}`
}

func textPrompt(ev *models.Event, evidenceText string, typ models.ArtifactType) string {
	instruction := map[models.ArtifactType]string{
		models.ArtifactWhatHappened: "Describe in 2-3 factual sentences what happened.",
		models.ArtifactSummary:      "Summarize the event in one paragraph for a technical reader.",
		models.ArtifactWhyMatters:   "Explain in 2-3 sentences why this matters to practitioners.",
		models.ArtifactGMTake:       "Give a brief opinionated read on this event, as a seasoned industry observer would.",
	}[typ]

	return eventContext(ev, evidenceText) + "\n\n" + instruction + `
Schema: {"text": "<string>"}`
}

func entityPrompt(ev *models.Event, evidenceText string) string {
	return eventContext(ev, evidenceText) + `

Extract the named entities this event mentions.
Schema: {"entities": [{"name": "<string>", "type": "<type>", "role": "<role>", "confidence": <0..1>}]}`
}

func topicPrompt(ev *models.Event, evidenceText string) string {
	return eventContext(ev, evidenceText) + `

Assign one to three topics.
Schema: {"topics": [{"slug": "<slug>", "confidence": <0..1>}]}`
}

func relationshipPrompt(ev *models.Event, evidenceText string, slugs []string) string {
	return eventContext(ev, evidenceText) + fmt.Sprintf(`

Known entities for this event: %s
Extract directed relationships between these entities only. Use entity slugs as endpoints.
Schema: {"relationships": [{"source": "<slug>", "target": "<slug>", "type": "<type>", "confidence": <0..1>}]}`,
		strings.Join(slugs, ", "))
}
