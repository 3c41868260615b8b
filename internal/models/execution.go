package models

import (
	"fmt"
	"time"
)

// Schema identification for persisted execution records.
const (
	SchemaMarker  = "claudiomiro/execution-record"
	SchemaVersion = "1.0"
)

// Task status values
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskBlocked    = "blocked"
)

// Phase status values
const (
	PhasePending    = "pending"
	PhaseInProgress = "in_progress"
	PhaseCompleted  = "completed"
)

// Confidence levels for uncertainties
const (
	ConfidenceLow    = "LOW"
	ConfidenceMedium = "MEDIUM"
	ConfidenceHigh   = "HIGH"
)

// Artifact types
const (
	ArtifactCreated  = "created"
	ArtifactModified = "modified"
)

// Completion status values
const (
	CompletionPendingValidation = "pending_validation"
	CompletionCompleted         = "completed"
	CompletionBlocked           = "blocked"
)

// TaskStatuses lists the valid task status values.
var TaskStatuses = []string{TaskPending, TaskInProgress, TaskCompleted, TaskBlocked}

// PhaseStatuses lists the valid phase status values.
var PhaseStatuses = []string{PhasePending, PhaseInProgress, PhaseCompleted}

// Confidences lists the valid confidence levels.
var Confidences = []string{ConfidenceLow, ConfidenceMedium, ConfidenceHigh}

// ArtifactTypes lists the valid artifact types.
var ArtifactTypes = []string{ArtifactCreated, ArtifactModified}

// CompletionStatuses lists the valid completion status values.
var CompletionStatuses = []string{CompletionPendingValidation, CompletionCompleted, CompletionBlocked}

// ExecutionRecord is the persisted progress document for a single task.
// The external actor rewrites it directly, so it is only trusted after the
// schema pipeline has sanitized and repaired it.
type ExecutionRecord struct {
	Schema          string             `json:"$schema"`
	Version         string             `json:"version"`
	Task            string             `json:"task"`                      // Task identifier, e.g. "TASK3"
	Title           string             `json:"title"`                     // Human-readable title
	Status          string             `json:"status"`                    // pending, in_progress, completed, blocked
	Started         string             `json:"started"`                   // RFC3339 timestamp
	Attempts        int                `json:"attempts"`                  // Monotonic attempt counter
	CurrentPhase    CurrentPhase       `json:"currentPhase"`              // Pointer into Phases
	Phases          []Phase            `json:"phases"`                    // Ordered phase list
	Uncertainties   []Uncertainty      `json:"uncertainties"`             // Assumptions made while working
	Artifacts       []Artifact         `json:"artifacts"`                 // Files created or modified
	SuccessCriteria []SuccessCriterion `json:"successCriteria,omitempty"` // Optional acceptance checks
	ErrorHistory    []ErrorEntry       `json:"errorHistory"`              // Append-only failure log
	PendingFixes    []string           `json:"pendingFixes"`              // De-duplicated validation kinds to fix
	Completion      Completion         `json:"completion"`
	BeyondTheBasics *BeyondTheBasics   `json:"beyondTheBasics,omitempty"`
}

// CurrentPhase points at the phase the actor is working on.
type CurrentPhase struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	LastAction string `json:"lastAction"`
}

// Phase is one step of the task's linear phase sequence.
type Phase struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Status        string         `json:"status"` // pending, in_progress, completed
	PreConditions []PreCondition `json:"preConditions"`
}

// PreCondition is a check the actor verified before starting a phase.
type PreCondition struct {
	Check    string `json:"check"`
	Command  string `json:"command"`
	Expected string `json:"expected"`
	Passed   bool   `json:"passed"`
	Evidence string `json:"evidence,omitempty"`
}

// Uncertainty records an assumption and its eventual resolution.
type Uncertainty struct {
	ID                 string  `json:"id"` // "U<n>"
	Topic              string  `json:"topic"`
	Assumption         string  `json:"assumption"`
	Confidence         string  `json:"confidence"` // LOW, MEDIUM, HIGH
	Resolution         *string `json:"resolution"`
	ResolvedConfidence *string `json:"resolvedConfidence"`
}

// Artifact is a file the actor created or modified.
type Artifact struct {
	Type     string `json:"type"` // created, modified
	Path     string `json:"path"`
	Verified bool   `json:"verified"`
}

// SuccessCriterion is an acceptance check declared for the task.
type SuccessCriterion struct {
	Description string `json:"description"`
	Command     string `json:"command"`
	Passed      bool   `json:"passed"`
	Evidence    string `json:"evidence,omitempty"`
}

// ErrorEntry is one recorded failure.
type ErrorEntry struct {
	Timestamp        string `json:"timestamp"`
	Message          string `json:"message"`
	FailedValidation string `json:"failedValidation"`
	Stack            string `json:"stack"`
}

// Completion summarizes the outcome of the task.
type Completion struct {
	Status           string   `json:"status"` // pending_validation, completed, blocked
	Summary          []string `json:"summary"`
	Deviations       []string `json:"deviations"`
	ForFutureTasks   []string `json:"forFutureTasks"`
	BlockedBy        []string `json:"blockedBy,omitempty"`
	LastError        string   `json:"lastError,omitempty"`
	FailedValidation string   `json:"failedValidation,omitempty"`
}

// BeyondTheBasics captures work beyond the literal task requirements.
type BeyondTheBasics struct {
	Extras           []string               `json:"extras"`
	EdgeCases        []string               `json:"edgeCases"`
	DownstreamImpact map[string]interface{} `json:"downstreamImpact"`
	Cleanup          Cleanup                `json:"cleanup"`
}

// Cleanup flags the actor sets once housekeeping is done.
type Cleanup struct {
	DebugLogsRemoved     bool `json:"debugLogsRemoved"`
	FormattingConsistent bool `json:"formattingConsistent"`
	DeadCodeRemoved      bool `json:"deadCodeRemoved"`
}

// NewExecutionRecord creates a record with seeded defaults for a task that is
// being materialized for the first time. Phase ids start at 1.
func NewExecutionRecord(taskID, title string, phaseNames []string, now time.Time) *ExecutionRecord {
	phases := make([]Phase, 0, len(phaseNames))
	for i, name := range phaseNames {
		phases = append(phases, Phase{
			ID:            i + 1,
			Name:          name,
			Status:        PhasePending,
			PreConditions: []PreCondition{},
		})
	}

	current := CurrentPhase{ID: 1, Name: "", LastAction: ""}
	if len(phases) > 0 {
		current.Name = phases[0].Name
	}

	return &ExecutionRecord{
		Schema:        SchemaMarker,
		Version:       SchemaVersion,
		Task:          taskID,
		Title:         title,
		Status:        TaskPending,
		Started:       now.UTC().Format(time.RFC3339),
		Attempts:      0,
		CurrentPhase:  current,
		Phases:        phases,
		Uncertainties: []Uncertainty{},
		Artifacts:     []Artifact{},
		ErrorHistory:  []ErrorEntry{},
		PendingFixes:  []string{},
		Completion: Completion{
			Status:         CompletionPendingValidation,
			Summary:        []string{},
			Deviations:     []string{},
			ForFutureTasks: []string{},
		},
		BeyondTheBasics: &BeyondTheBasics{
			Extras:           []string{},
			EdgeCases:        []string{},
			DownstreamImpact: map[string]interface{}{},
		},
	}
}

// PhaseByID returns the phase with the given id, or nil.
func (r *ExecutionRecord) PhaseByID(id int) *Phase {
	for i := range r.Phases {
		if r.Phases[i].ID == id {
			return &r.Phases[i]
		}
	}
	return nil
}

// HasUnresolvedUncertainties reports whether any uncertainty lacks a resolution.
func (r *ExecutionRecord) HasUnresolvedUncertainties() bool {
	for _, u := range r.Uncertainties {
		if u.Resolution == nil || *u.Resolution == "" {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the record claims the task is complete.
func (r *ExecutionRecord) IsTerminal() bool {
	return r.Completion.Status == CompletionCompleted
}

// LastError returns the most recent error message known to the record.
func (r *ExecutionRecord) LastError() string {
	if r.Completion.LastError != "" {
		return r.Completion.LastError
	}
	if n := len(r.ErrorHistory); n > 0 {
		return r.ErrorHistory[n-1].Message
	}
	return ""
}

// RecentErrors returns up to n error history entries, most recent first.
func (r *ExecutionRecord) RecentErrors(n int) []ErrorEntry {
	if n <= 0 {
		return nil
	}
	out := make([]ErrorEntry, 0, n)
	for i := len(r.ErrorHistory) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.ErrorHistory[i])
	}
	return out
}

// CompletedPrefix returns the highest phase id such that every phase up to and
// including it is completed, walking phases in order. Returns 0 when the first
// phase is not completed.
func (r *ExecutionRecord) CompletedPrefix() int {
	last := 0
	for _, p := range r.Phases {
		if p.Status != PhaseCompleted {
			break
		}
		last = p.ID
	}
	return last
}

// PhaseLabel returns the phase name, or "Phase <id>" when it has none.
func PhaseLabel(id int, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Phase %d", id)
}

// IsValidValue reports whether value is one of allowed.
func IsValidValue(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// Normalize replaces nil slices and maps with empty ones so the record
// serializes with [] and {} instead of null.
func (r *ExecutionRecord) Normalize() {
	if r.Phases == nil {
		r.Phases = []Phase{}
	}
	for i := range r.Phases {
		if r.Phases[i].PreConditions == nil {
			r.Phases[i].PreConditions = []PreCondition{}
		}
	}
	if r.Uncertainties == nil {
		r.Uncertainties = []Uncertainty{}
	}
	if r.Artifacts == nil {
		r.Artifacts = []Artifact{}
	}
	if r.ErrorHistory == nil {
		r.ErrorHistory = []ErrorEntry{}
	}
	if r.PendingFixes == nil {
		r.PendingFixes = []string{}
	}
	if r.Completion.Summary == nil {
		r.Completion.Summary = []string{}
	}
	if r.Completion.Deviations == nil {
		r.Completion.Deviations = []string{}
	}
	if r.Completion.ForFutureTasks == nil {
		r.Completion.ForFutureTasks = []string{}
	}
	if b := r.BeyondTheBasics; b != nil {
		if b.Extras == nil {
			b.Extras = []string{}
		}
		if b.EdgeCases == nil {
			b.EdgeCases = []string{}
		}
		if b.DownstreamImpact == nil {
			b.DownstreamImpact = map[string]interface{}{}
		}
	}
}
