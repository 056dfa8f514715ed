package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwire/observatory/internal/models"
)

func turn(p models.Persona, m models.MoveType, ref int) models.RoundtableTurn {
	return models.RoundtableTurn{Persona: p, Move: m, Text: "some dialogue", EventRef: ref}
}

func validRoundtable() models.RoundtablePayload {
	return models.RoundtablePayload{
		Turns: []models.RoundtableTurn{
			turn(models.PersonaGM, models.MoveSetup, 1),
			turn(models.PersonaEngineer, models.MoveTechRead, 1),
			turn(models.PersonaSkeptic, models.MoveRiskCheck, 2),
			turn(models.PersonaGM, models.MoveTakeaway, 1),
		},
		Prediction: "more of the same",
	}
}

func TestValidateRoundtableAccepts(t *testing.T) {
	require.NoError(t, ValidateRoundtable(validRoundtable(), 3))
}

func TestValidateRoundtableRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RoundtablePayload)
	}{
		{"too few turns", func(p *models.RoundtablePayload) {
			p.Turns = p.Turns[:3]
		}},
		{"too many turns", func(p *models.RoundtablePayload) {
			for len(p.Turns) <= maxTurns {
				extra := turn(models.PersonaEngineer, models.MoveCrossExam, 1)
				p.Turns = append(p.Turns[:len(p.Turns)-1], extra, p.Turns[len(p.Turns)-1])
			}
		}},
		{"does not open with GM/SETUP", func(p *models.RoundtablePayload) {
			p.Turns[0] = turn(models.PersonaEngineer, models.MoveSetup, 1)
		}},
		{"does not close with GM/TAKEAWAY", func(p *models.RoundtablePayload) {
			p.Turns[len(p.Turns)-1] = turn(models.PersonaGM, models.MoveCut, 1)
		}},
		{"missing engineer tech read", func(p *models.RoundtablePayload) {
			p.Turns[1] = turn(models.PersonaEngineer, models.MoveCrossExam, 1)
		}},
		{"missing skeptic risk check", func(p *models.RoundtablePayload) {
			p.Turns[2] = turn(models.PersonaSkeptic, models.MoveCrossExam, 2)
		}},
		{"tech read by wrong persona", func(p *models.RoundtablePayload) {
			p.Turns[1] = turn(models.PersonaSkeptic, models.MoveTechRead, 1)
			p.Turns[2] = turn(models.PersonaSkeptic, models.MoveRiskCheck, 1)
		}},
		{"event ref zero", func(p *models.RoundtablePayload) {
			p.Turns[1].EventRef = 0
		}},
		{"event ref past ranked count", func(p *models.RoundtablePayload) {
			p.Turns[2].EventRef = 4
		}},
		{"unknown persona", func(p *models.RoundtablePayload) {
			p.Turns[1].Persona = "Narrator"
		}},
		{"unknown move", func(p *models.RoundtablePayload) {
			p.Turns[1].Move = "MONOLOGUE"
		}},
		{"empty text", func(p *models.RoundtablePayload) {
			p.Turns[1].Text = "   "
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validRoundtable()
			tt.mutate(&p)
			assert.Error(t, ValidateRoundtable(p, 3))
		})
	}
}

func TestValidateLegacy(t *testing.T) {
	single := models.RoundtablePayload{
		Turns:      []models.RoundtableTurn{turn(models.PersonaGM, models.MoveSetup, 1)},
		Prediction: "quiet week ahead",
	}
	require.NoError(t, ValidateLegacy(single, 3))

	assert.Error(t, ValidateLegacy(models.RoundtablePayload{}, 3), "empty payload")

	bad := single
	bad.Turns = []models.RoundtableTurn{turn(models.PersonaGM, models.MoveSetup, 9)}
	assert.Error(t, ValidateLegacy(bad, 3), "out-of-range ref")
}

func TestEventRoster(t *testing.T) {
	events := []models.Event{
		{Title: "First", ImpactLevel: models.ImpactHigh, SourceCount: 3},
		{Title: "Second", ImpactLevel: models.ImpactLow, SourceCount: 1},
	}

	roster := eventRoster(events)
	assert.Contains(t, roster, "1. [HIGH, 3 source(s)] First")
	assert.Contains(t, roster, "2. [LOW, 1 source(s)] Second")
}
