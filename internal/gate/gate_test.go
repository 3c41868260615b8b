package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

func record(current int, statuses ...string) *models.ExecutionRecord {
	rec := &models.ExecutionRecord{Task: "TASK1", CurrentPhase: models.CurrentPhase{ID: current, LastAction: "editing"}}
	for i, s := range statuses {
		rec.Phases = append(rec.Phases, models.Phase{ID: i + 1, Name: "", Status: s})
	}
	return rec
}

func TestEnforce_DemotesToLowestIncomplete(t *testing.T) {
	rec := record(3, models.PhaseCompleted, models.PhasePending, models.PhasePending)

	assert.False(t, Enforce(rec))
	assert.Equal(t, 2, rec.CurrentPhase.ID)
	assert.Equal(t, "Phase 2", rec.CurrentPhase.Name)
	assert.Equal(t, "editing", rec.CurrentPhase.LastAction)
}

func TestEnforce_Passes(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.ExecutionRecord
	}{
		{"first phase", record(1, models.PhasePending, models.PhasePending)},
		{"phase zero", record(0, models.PhasePending)},
		{"previous completed", record(2, models.PhaseCompleted, models.PhaseInProgress)},
		{"no previous phase", record(7, models.PhasePending)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.rec.CurrentPhase
			assert.True(t, Enforce(tt.rec))
			assert.Equal(t, before, tt.rec.CurrentPhase)
			assert.Nil(t, Check(tt.rec))
		})
	}
}

func TestEnforce_SmallestIncompleteInvariant(t *testing.T) {
	tests := [][]string{
		{models.PhasePending, models.PhasePending, models.PhasePending, models.PhasePending},
		{models.PhaseCompleted, models.PhaseCompleted, models.PhaseInProgress, models.PhasePending},
		{models.PhaseCompleted, models.PhasePending, models.PhaseCompleted, models.PhasePending},
	}
	for _, statuses := range tests {
		for current := 2; current <= len(statuses); current++ {
			rec := record(current, statuses...)
			if rec.Phases[current-2].Status == models.PhaseCompleted {
				continue
			}
			Enforce(rec)

			smallest := 0
			for _, p := range rec.Phases {
				if p.Status != models.PhaseCompleted {
					smallest = p.ID
					break
				}
			}
			assert.Equal(t, smallest, rec.CurrentPhase.ID, "statuses %v current %d", statuses, current)
		}
	}
}

func TestEnforce_UsesPhaseName(t *testing.T) {
	rec := record(3, models.PhaseCompleted, models.PhasePending, models.PhasePending)
	rec.Phases[1].Name = "Implement"

	v := Check(rec)
	require.NotNil(t, v)
	assert.Equal(t, 2, v.PreviousID)
	assert.Contains(t, v.String(), "phase 2 is pending")

	Enforce(rec)
	assert.Equal(t, "Implement", rec.CurrentPhase.Name)
}

func TestUpdatePhaseProgress(t *testing.T) {
	rec := record(2, models.PhaseCompleted, models.PhaseInProgress, models.PhasePending)
	rec.Phases[2].Name = "Verify"

	require.NoError(t, UpdatePhaseProgress(rec, 3, models.PhaseInProgress))
	assert.Equal(t, 3, rec.CurrentPhase.ID)
	assert.Equal(t, "Verify", rec.CurrentPhase.Name)

	require.NoError(t, UpdatePhaseProgress(rec, 1, models.PhaseInProgress))
	assert.Equal(t, 3, rec.CurrentPhase.ID, "pointer never moves backward")
	assert.Equal(t, models.PhaseInProgress, rec.Phases[0].Status)

	assert.Error(t, UpdatePhaseProgress(rec, 9, models.PhaseCompleted))
	assert.Error(t, UpdatePhaseProgress(rec, 2, "finished"))
}
