package briefing

import (
	"fmt"
	"strings"

	"github.com/aiwire/observatory/internal/models"
)

const (
	minTurns = 4
	maxTurns = 20
)

var validPersonas = map[models.Persona]bool{
	models.PersonaGM:       true,
	models.PersonaEngineer: true,
	models.PersonaSkeptic:  true,
}

var validMoves = map[models.MoveType]bool{
	models.MoveSetup:        true,
	models.MoveTechRead:     true,
	models.MoveRiskCheck:    true,
	models.MoveCrossExam:    true,
	models.MoveEvidenceCall: true,
	models.MoveTakeaway:     true,
	models.MoveCut:          true,
}

// ValidateRoundtable checks a generated payload against the roundtable
// schema: the GM opens with SETUP and closes with TAKEAWAY, the dialogue runs
// 4 to 20 turns, the Engineer delivers at least one TECH_READ, the Skeptic at
// least one RISK_CHECK, and every event reference points at a ranked event.
func ValidateRoundtable(p models.RoundtablePayload, eventCount int) error {
	if len(p.Turns) < minTurns || len(p.Turns) > maxTurns {
		return fmt.Errorf("turn count %d outside [%d,%d]", len(p.Turns), minTurns, maxTurns)
	}

	first, last := p.Turns[0], p.Turns[len(p.Turns)-1]
	if first.Persona != models.PersonaGM || first.Move != models.MoveSetup {
		return fmt.Errorf("dialogue must open with GM/SETUP, got %s/%s", first.Persona, first.Move)
	}
	if last.Persona != models.PersonaGM || last.Move != models.MoveTakeaway {
		return fmt.Errorf("dialogue must close with GM/TAKEAWAY, got %s/%s", last.Persona, last.Move)
	}

	techRead, riskCheck := false, false
	for i, turn := range p.Turns {
		if err := validateTurn(turn, eventCount); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
		if turn.Persona == models.PersonaEngineer && turn.Move == models.MoveTechRead {
			techRead = true
		}
		if turn.Persona == models.PersonaSkeptic && turn.Move == models.MoveRiskCheck {
			riskCheck = true
		}
	}
	if !techRead {
		return fmt.Errorf("missing Engineer/TECH_READ turn")
	}
	if !riskCheck {
		return fmt.Errorf("missing Skeptic/RISK_CHECK turn")
	}

	return nil
}

// ValidateLegacy checks the single-turn fallback payload: one non-empty GM
// turn with in-range references.
func ValidateLegacy(p models.RoundtablePayload, eventCount int) error {
	if len(p.Turns) == 0 {
		return fmt.Errorf("no turns")
	}
	for i, turn := range p.Turns {
		if err := validateTurn(turn, eventCount); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	return nil
}

func validateTurn(turn models.RoundtableTurn, eventCount int) error {
	if !validPersonas[turn.Persona] {
		return fmt.Errorf("unknown persona %q", turn.Persona)
	}
	if !validMoves[turn.Move] {
		return fmt.Errorf("unknown move %q", turn.Move)
	}
	if strings.TrimSpace(turn.Text) == "" {
		return fmt.Errorf("empty text")
	}
	if turn.EventRef < 1 || turn.EventRef > eventCount {
		return fmt.Errorf("event ref %d outside [1,%d]", turn.EventRef, eventCount)
	}
	return nil
}
