// Package gate keeps an execution record from advancing past a phase whose
// predecessor is unfinished.
package gate

import (
	"fmt"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// Violation describes why the current phase pointer is not allowed.
type Violation struct {
	CurrentID      int    // Phase the record pointed at
	PreviousID     int    // Predecessor that is not completed
	PreviousStatus string // Its status
	DemotedID      int    // Phase the pointer moves to
	DemotedName    string
}

func (v *Violation) String() string {
	return fmt.Sprintf("phase %d cannot start: phase %d is %s, resuming at phase %d (%s)",
		v.CurrentID, v.PreviousID, v.PreviousStatus, v.DemotedID, v.DemotedName)
}

// Check reports the violation Enforce would correct, without modifying rec.
// It returns nil when the gate passes.
func Check(rec *models.ExecutionRecord) *Violation {
	currentID := rec.CurrentPhase.ID
	if currentID <= 1 {
		return nil
	}
	previous := rec.PhaseByID(currentID - 1)
	if previous == nil || previous.Status == models.PhaseCompleted {
		return nil
	}

	v := &Violation{
		CurrentID:      currentID,
		PreviousID:     previous.ID,
		PreviousStatus: previous.Status,
	}
	if target := lowestIncomplete(rec.Phases); target != nil {
		v.DemotedID = target.ID
		v.DemotedName = models.PhaseLabel(target.ID, target.Name)
	} else {
		v.DemotedID = currentID - 1
		v.DemotedName = previous.Name
	}
	return v
}

// Enforce demotes currentPhase to the lowest-id phase that is not completed
// when the phase before the current one is unfinished. It returns true when
// the gate passes and false when rec was demoted. lastAction is preserved.
func Enforce(rec *models.ExecutionRecord) bool {
	v := Check(rec)
	if v == nil {
		return true
	}
	rec.CurrentPhase.ID = v.DemotedID
	rec.CurrentPhase.Name = v.DemotedName
	return false
}

func lowestIncomplete(phases []models.Phase) *models.Phase {
	var lowest *models.Phase
	for i := range phases {
		p := &phases[i]
		if p.Status == models.PhaseCompleted {
			continue
		}
		if lowest == nil || p.ID < lowest.ID {
			lowest = p
		}
	}
	return lowest
}

// UpdatePhaseProgress sets the status of phase phaseID and moves
// currentPhase forward to it when phaseID is ahead of the pointer.
// The pointer never moves backward.
func UpdatePhaseProgress(rec *models.ExecutionRecord, phaseID int, status string) error {
	if !models.IsValidValue(status, models.PhaseStatuses) {
		return fmt.Errorf("invalid phase status %q", status)
	}
	phase := rec.PhaseByID(phaseID)
	if phase == nil {
		return fmt.Errorf("phase %d does not exist in %s", phaseID, rec.Task)
	}

	phase.Status = status
	if phaseID > rec.CurrentPhase.ID {
		rec.CurrentPhase.ID = phaseID
		rec.CurrentPhase.Name = models.PhaseLabel(phase.ID, phase.Name)
	}
	return nil
}
