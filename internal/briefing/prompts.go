package briefing

import (
	"fmt"
	"strings"

	"github.com/aiwire/observatory/internal/models"
)

const roundtableSystemPrompt = `You write a daily AI-industry briefing as a roundtable dialogue between three personas:
- GM: the host, frames the day and delivers the takeaway.
- Engineer: reads the technical substance of each story.
- Skeptic: probes risks, hype, and missing evidence.

Allowed moves: SETUP, TECH_READ, RISK_CHECK, CROSS_EXAM, EVIDENCE_CALL, TAKEAWAY, CUT.
Hard rules: the first turn is GM with move SETUP; the last turn is GM with move TAKEAWAY; between 4 and 20 turns total; the Engineer makes at least one TECH_READ; the Skeptic makes at least one RISK_CHECK; every turn's event_ref is the 1-based rank of the event it discusses.
Respond with JSON only.`

const legacySystemPrompt = `You write a concise daily AI-industry briefing. Summarize the ranked events in one editorial passage and close with a short prediction. Respond with JSON only.`

// eventRoster renders the ranked events the way both prompts reference them.
func eventRoster(events []models.Event) string {
	var sb strings.Builder
	for i, ev := range events {
		fmt.Fprintf(&sb, "%d. [%s, %d source(s)] %s\n", i+1, ev.ImpactLevel, ev.SourceCount, ev.Title)
	}
	return sb.String()
}

func roundtablePrompt(date string, events []models.Event) string {
	return fmt.Sprintf(`Briefing date: %s
Top events, ranked:
%s
Write the roundtable for these events.
Schema: {"turns": [{"persona": "GM|Engineer|Skeptic", "move": "<move>", "text": "<string>", "event_ref": <1..%d>}], "prediction": "<string>"}`,
		date, eventRoster(events), len(events))
}

func legacyPrompt(date string, events []models.Event) string {
	return fmt.Sprintf(`Briefing date: %s
Top events, ranked:
%s
Write a single-voice briefing.
Schema: {"turns": [{"persona": "GM", "move": "SETUP", "text": "<string>", "event_ref": 1}], "prediction": "<string>"}`,
		date, eventRoster(events))
}
